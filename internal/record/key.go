package record

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultBusinessKeyField is the body field carrying a parcel's natural key.
const DefaultBusinessKeyField = "parcel_cod"

// ExtractBusinessKey returns the normalized value of field in a JSON object
// body, or "" when the body is not a JSON object or the field is absent,
// empty, or not a string or number.
func ExtractBusinessKey(body []byte, field string) string {
	if field == "" || len(bytes.TrimSpace(body)) == 0 {
		return ""
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	raw, ok := obj[field]
	if !ok {
		return ""
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return NormalizeKey(val)
	case json.Number:
		return canonicalNumber(val)
	default:
		return ""
	}
}

// NormalizeKey trims and NFC-normalizes a business key. Parcel codes typed on
// different keyboards can arrive in composed or decomposed form and must
// still match.
func NormalizeKey(key string) string {
	return strings.TrimSpace(norm.NFC.String(key))
}

// canonicalNumber renders n so that 1, 1.0 and 1e0 yield the same key.
// Integers are kept exact; other values go through float64.
func canonicalNumber(n json.Number) string {
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return n.String()
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
