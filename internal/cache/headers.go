package cache

import (
	"net/http"
	"strings"
)

var hopByHop = []string{
	"Connection", "Proxy-Connection", "Keep-Alive",
	"Proxy-Authenticate", "Proxy-Authorization", "TE",
	"Trailer", "Transfer-Encoding", "Upgrade",
}

// StripHopByHop returns a copy of header without hop-by-hop fields,
// including any named by the Connection header.
func StripHopByHop(header http.Header) http.Header {
	clone := header.Clone()
	if clone == nil {
		return make(http.Header)
	}

	for _, k := range hopByHop {
		clone.Del(k)
	}
	if conn := header.Get("Connection"); conn != "" {
		for _, token := range strings.Split(conn, ",") {
			token = strings.TrimSpace(token)
			if token != "" {
				clone.Del(token)
			}
		}
	}
	return clone
}
