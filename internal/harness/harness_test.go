package harness

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/landsync/internal/intercept"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func parse(t *testing.T, doc string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(doc))
	require.NoError(t, err)
	return s
}

func TestGoldenScenarios(t *testing.T) {
	entries, err := os.ReadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		t.Run(name, func(t *testing.T) {
			scenario := loadTestScenario(t, name)
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_OfflineWriteThenSync(t *testing.T) {
	result, err := Run(loadTestScenario(t, "offline_write_then_sync"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Pending)
	assert.Equal(t, []string{`{"parcel_cod":"A01","owner_name":"X"}`}, result.Delivered)

	last := result.Trace[len(result.Trace)-1]
	assert.Equal(t, EventSync, last.Type)
	assert.Equal(t, []string{"SYNC_SUCCESS", "SYNC_COMPLETED"}, last.Messages)
}

func TestRun_PendingStateKeepsFIFO(t *testing.T) {
	result, err := Run(parse(t, `
name: fifo
description: queued writes keep arrival order
steps:
  - network: down
  - request: {method: POST, path: /api/a, body: '{"parcel_cod":"A"}'}
  - request: {method: PUT, path: /api/b, body: '{"parcel_cod":"B"}'}
  - request: {method: DELETE, path: '/api/c?id=3'}
expect:
  pending: 3
  pending_keys: [A, B, ""]
`))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Pending, 3)
	assert.Equal(t, PendingState{ID: "off_1", Method: http.MethodPost, Path: "/api/a", BusinessKey: "A"}, result.Pending[0])
	assert.Equal(t, "off_2", result.Pending[1].ID)
	assert.Equal(t, "/api/c?id=3", result.Pending[2].Path)
}

func TestRun_FailedExpectationsAreReported(t *testing.T) {
	result, err := Run(parse(t, `
name: wrong_expectations
description: every expectation is off by one
routes:
  - {method: GET, path: /api/parcels, body: '[]'}
steps:
  - request:
      path: /api/parcels
      expect: {status: 201, source: cache, body: '{}'}
  - sync:
      expect: {synced: 1}
expect:
  pending: 1
  synced: 2
  failed: 1
  delivered: ['x']
`))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 8)
	assert.Contains(t, result.Errors[0], "expected status 201, got 200")
}

func TestRun_CacheMissIsServiceUnavailable(t *testing.T) {
	result, err := Run(parse(t, `
name: miss
description: an uncached read while offline is a dead end
steps:
  - network: down
  - request:
      path: /api/parcels?page=2
      expect: {status: 503}
`))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Contains(t, result.Trace[1].Body, string(intercept.KindCacheMiss))
}

func TestRun_OriginStatus(t *testing.T) {
	result, err := Run(parse(t, `
name: origin_status
description: a rejecting origin leaves writes queued
steps:
  - network: down
  - request: {method: POST, path: /api/land_parcel, body: '{"parcel_cod":"A01"}'}
  - network: up
  - origin_status: 503
  - sync:
      expect: {synced: 0, failed: 1}
  - origin_status: 0
  - sync:
      expect: {failed: 1}
expect:
  pending: 1
  failed: 2
  delivered: []
`))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_InstallSeedsOrganizations(t *testing.T) {
	result, err := Run(parse(t, `
name: install
description: install seeds organizations and precaches the offline page
routes:
  - {method: GET, path: /offline.html, body: '<p>offline</p>', content_type: text/html}
steps:
  - install: true
  - network: down
  - request:
      path: /api/organizations
      expect: {status: 200, source: cache}
  - request:
      path: /reports
      navigate: true
      expect: {status: 200, source: offline-page, body: '<p>offline</p>'}
`))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ConfigOverrides(t *testing.T) {
	result, err := Run(parse(t, `
name: max_pending
description: the queue cap rejects writes beyond it
config:
  max_pending: 1
steps:
  - network: down
  - request:
      method: POST
      path: /api/land_parcel
      body: '{"parcel_cod":"A01"}'
      expect: {status: 200, source: queued}
  - request:
      method: POST
      path: /api/land_parcel
      body: '{"parcel_cod":"A02"}'
      expect: {status: 500}
expect:
  pending: 1
`))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing name", "description: d\nsteps: [{network: up}]\n", "name is required"},
		{"missing description", "name: n\nsteps: [{network: up}]\n", "description is required"},
		{"no steps", "name: n\ndescription: d\n", "steps list is required"},
		{"unknown field", "name: n\ndescription: d\nstep: []\n", "field step not found"},
		{"bad network", "name: n\ndescription: d\nsteps: [{network: sideways}]\n", "network must be up or down"},
		{"two actions", "name: n\ndescription: d\nsteps: [{network: up, install: true}]\n", "exactly one of"},
		{"empty step", "name: n\ndescription: d\nsteps: [{}]\n", "exactly one of"},
		{"relative path", "name: n\ndescription: d\nsteps: [{request: {path: api}}]\n", "must start with /"},
		{"bad status", "name: n\ndescription: d\nsteps: [{origin_status: 42}]\n", "not an HTTP status"},
		{"bad route", "name: n\ndescription: d\nroutes: [{path: /x}]\nsteps: [{network: up}]\n", "routes[0]"},
		{"bad config", "name: n\ndescription: d\nconfig: {api_prefix: api}\nsteps: [{network: up}]\n", "config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_DefaultsMethod(t *testing.T) {
	s := parse(t, "name: n\ndescription: d\nsteps: [{request: {method: post, path: /api/x}}, {request: {path: /}}]\n")
	assert.Equal(t, http.MethodPost, s.Steps[0].Request.Method)
	assert.Equal(t, http.MethodGet, s.Steps[1].Request.Method)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
