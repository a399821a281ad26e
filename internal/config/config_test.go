package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, doc string) (Config, error) {
	t.Helper()
	return Decode(strings.NewReader(doc))
}

func TestSchemaCompiles(t *testing.T) {
	schema := cuecontext.New().CompileString(schemaCUE)
	require.NoError(t, schema.Err())

	def := schema.LookupPath(cue.ParsePath("#Config"))
	require.NoError(t, def.Err())
}

func TestDecode_MinimalDocument(t *testing.T) {
	cfg, err := decode(t, "origin: http://192.168.1.10:3000\n")
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.10:3000", cfg.Origin)
	assert.NotEqual(t, cfg.Cache.StaticPartition, cfg.Cache.DataPartition)
}

func TestDecode_AppliesDefaults(t *testing.T) {
	cfg, err := decode(t, "origin: http://192.168.1.20:8080\n")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8090", cfg.Listen)
	assert.Equal(t, "/api/", cfg.APIPrefix)
	assert.Equal(t, 5*time.Second, cfg.PrivateTimeout)
	assert.Equal(t, "parcel_cod", cfg.BusinessKeyField)
	assert.Len(t, cfg.DefaultOrganizations, 3)
	assert.True(t, cfg.Cache.Persistent)
	assert.Equal(t, "http://192.168.1.20:8080/api/health", cfg.HealthURL())
}

func TestDecode_OverridesNestedFields(t *testing.T) {
	cfg, err := decode(t, `
origin: https://land.example.org/
private_timeout: 2s
max_pending: 100
cache:
  data_partition: tdm-data-cache-v2
  precache: ["/"]
`)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.PrivateTimeout)
	assert.Equal(t, 100, cfg.MaxPending)
	assert.Equal(t, "tdm-data-cache-v2", cfg.Cache.DataPartition)
	assert.Equal(t, Default().Cache.StaticPartition, cfg.Cache.StaticPartition)
	assert.Equal(t, []string{"/"}, cfg.Cache.Precache)
	assert.Equal(t, "https://land.example.org/api/health", cfg.HealthURL())
	assert.Equal(t, []string{cfg.Cache.StaticPartition, "tdm-data-cache-v2"}, cfg.Partitions())
}

func TestDecode_EmptyListsAllowed(t *testing.T) {
	cfg, err := decode(t, `
origin: http://localhost:8080
default_organizations: []
cache:
  precache: []
`)
	require.NoError(t, err)
	assert.Empty(t, cfg.DefaultOrganizations)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing origin", "listen: 127.0.0.1:9000\n", "origin(required)"},
		{"unknown key", "origin: http://localhost\norgin: x\n", "field orgin not found"},
		{"bad listen", "origin: http://localhost\nlisten: nowhere\n", "listen(hostname_port)"},
		{"api prefix without slashes", "origin: http://localhost\napi_prefix: api\n", "api_prefix"},
		{"negative max pending", "origin: http://localhost\nmax_pending: -1\n", "max_pending"},
		{"same partitions", "origin: http://localhost\ncache:\n  static_partition: p\n  data_partition: p\n", "data_partition"},
		{"relative precache", "origin: http://localhost\ncache:\n  precache: [index.html]\n", "precache"},
		{"not yaml", "origin: [\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(t, tt.doc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDefault_RequiresOrigin(t *testing.T) {
	err := Default().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "origin")

	cfg := Default()
	cfg.Origin = "http://localhost:8080"
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "landsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("origin: http://10.0.0.5\ndatabase: /var/lib/landsync.db\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/landsync.db", cfg.Database)

	u, err := cfg.OriginURL()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", u.Host)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestIntercept(t *testing.T) {
	cfg := Default()
	cfg.Origin = "http://localhost"
	cfg.Cache.OfflinePage = "/offline-th.html"

	ic := cfg.Intercept()
	assert.Equal(t, cfg.APIPrefix, ic.APIPrefix)
	assert.Equal(t, "/offline-th.html", ic.OfflinePageKey)
	assert.Equal(t, cfg.Cache.DataPartition, ic.DataPartition)
	assert.Equal(t, cfg.OfflineMessage, ic.OfflineMessage)
}
