package record

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validWrite() PendingWrite {
	return PendingWrite{
		ID:        "off_1",
		URL:       "http://192.168.1.10:3000/api/land_parcel",
		Method:    http.MethodPost,
		Header:    http.Header{"Content-Type": []string{"application/json"}},
		Body:      []byte(`{"parcel_cod":"A01","owner_name":"X"}`),
		CreatedAt: time.Unix(1700000000, 0),
	}
}

func TestValidate_Accepts(t *testing.T) {
	require.NoError(t, validWrite().Validate())
}

func TestValidate_Rejects(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*PendingWrite)
		wantErr string
	}{
		{
			name:    "missing_id",
			mutate:  func(w *PendingWrite) { w.ID = "" },
			wantErr: "id(required)",
		},
		{
			name:    "relative_url",
			mutate:  func(w *PendingWrite) { w.URL = "/api/land_parcel" },
			wantErr: "url(url)",
		},
		{
			name:    "read_method",
			mutate:  func(w *PendingWrite) { w.Method = http.MethodGet },
			wantErr: "method(oneof)",
		},
		{
			name:    "zero_timestamp",
			mutate:  func(w *PendingWrite) { w.CreatedAt = time.Time{} },
			wantErr: "createdat(required)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := validWrite()
			tc.mutate(&w)

			err := w.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestClone_IsDeep(t *testing.T) {
	w := validWrite()
	c := w.Clone()

	c.Body[0] = '['
	c.Header.Set("X-Test", "1")

	assert.Equal(t, byte('{'), w.Body[0])
	assert.Empty(t, w.Header.Get("X-Test"))
}

func TestIsWriteMethod(t *testing.T) {
	for _, m := range []string{"POST", "put", "PATCH", "DELETE"} {
		assert.True(t, IsWriteMethod(m), m)
	}
	for _, m := range []string{"GET", "HEAD", "OPTIONS"} {
		assert.False(t, IsWriteMethod(m), m)
	}
}

func TestExtractBusinessKey(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want string
	}{
		{name: "string_field", body: `{"parcel_cod":"A01","owner_name":"X"}`, want: "A01"},
		{name: "trimmed", body: `{"parcel_cod":"  A01  "}`, want: "A01"},
		{name: "numeric_field", body: `{"parcel_cod":10023}`, want: "10023"},
		{name: "numeric_trailing_zero", body: `{"parcel_cod":10023.0}`, want: "10023"},
		{name: "numeric_exponent", body: `{"parcel_cod":1.0023e4}`, want: "10023"},
		{name: "numeric_fraction", body: `{"parcel_cod":12.50}`, want: "12.5"},
		{name: "numeric_large_int", body: `{"parcel_cod":9007199254740993}`, want: "9007199254740993"},
		{name: "missing_field", body: `{"owner_name":"X"}`, want: ""},
		{name: "null_field", body: `{"parcel_cod":null}`, want: ""},
		{name: "object_field", body: `{"parcel_cod":{"a":1}}`, want: ""},
		{name: "array_body", body: `[{"parcel_cod":"A01"}]`, want: ""},
		{name: "not_json", body: `parcel_cod=A01`, want: ""},
		{name: "empty", body: ``, want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractBusinessKey([]byte(tc.body), DefaultBusinessKeyField))
		})
	}
}

func TestExtractBusinessKey_EmptyFieldDisables(t *testing.T) {
	assert.Empty(t, ExtractBusinessKey([]byte(`{"parcel_cod":"A01"}`), ""))
}

func TestNormalizeKey_ComposesUnicode(t *testing.T) {
	// "é" decomposed (e + U+0301) and precomposed (U+00E9) must match.
	decomposed := "parcel-e\u0301"
	composed := "parcel-\u00e9"

	require.NotEqual(t, composed, decomposed)
	assert.Equal(t, NormalizeKey(composed), NormalizeKey(decomposed))
}

func TestUUIDv7Generator_PrefixAndUnique(t *testing.T) {
	gen := UUIDv7Generator{}
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen.Generate()
		require.True(t, strings.HasPrefix(id, IDPrefix), id)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestFixedIDGenerator(t *testing.T) {
	gen := NewFixedIDGenerator("off_1", "off_2")

	assert.Equal(t, "off_1", gen.Generate())
	assert.Equal(t, "off_2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}
