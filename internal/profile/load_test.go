package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDocument = `{
	"targets": [
		{
			"name": "frontend",
			"added_headers": ["X-Forwarded-For"],
			"removed_headers": ["Connection"],
			"header_name_translation": {"X-Real-Ip": "X-Forwarded-For"},
			"supports_persistence": true
		},
		{
			"name": "backend",
			"supports_persistence": true,
			"allows_http_0_9": true,
			"allows_missing_host": true
		}
	]
}`

func TestLoad(t *testing.T) {
	profiles, err := Load(strings.NewReader(validDocument))
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, "frontend", profiles[0].Name)
	assert.Equal(t, []string{"X-Forwarded-For"}, profiles[0].AddedHeaders)
	assert.Equal(t, []string{"Connection"}, profiles[0].RemovedHeaders)
	assert.True(t, profiles[0].SupportsPersistence)
	assert.False(t, profiles[0].AllowsHTTP09)

	assert.Equal(t, "backend", profiles[1].Name)
	assert.True(t, profiles[1].AllowsHTTP09)
	assert.True(t, profiles[1].AllowsMissingHost)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: `targets:`},
		{name: "wrong root type", input: `[]`},
		{name: "unknown key", input: `{"targets": [{"name": "a", "persistnce": true}]}`},
		{name: "wrong value type", input: `{"targets": [{"name": "a", "supports_persistence": "yes"}]}`},
		{name: "missing name", input: `{"targets": [{"supports_persistence": true}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	require.NoError(t, os.WriteFile(path, []byte(validDocument), 0o644))

	profiles, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, profiles, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestBuiltin(t *testing.T) {
	strict := Builtin("strict")
	require.NotNil(t, strict)
	assert.True(t, strict.RequiresLengthInPOST)
	assert.Contains(t, strict.MethodAllowlist, "GET")

	assert.Nil(t, Builtin("no-such-profile"))
	assert.Contains(t, BuiltinNames(), "lenient")
}

func TestTranslate(t *testing.T) {
	p := Builtin("stamping-proxy")
	require.NotNil(t, p)

	assert.Equal(t, "X-Forwarded-For", p.Translate("X-Real-Ip"))
	assert.Equal(t, "X-Forwarded-For", p.Translate("x-real-ip"))
	assert.Equal(t, "Host", p.Translate("Host"))
}
