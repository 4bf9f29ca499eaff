// pkg/catalog/catalog_test.go
package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedCatalog(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)
	assert.NotEmpty(t, cat.Version)
	assert.NotEmpty(t, cat.Intents)

	// every intent is resolvable by name
	for _, name := range cat.Names() {
		in, ok := cat.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, name, in.Name)
		assert.NotEmpty(t, in.Patterns, "%s has no trigger phrases", name)
		assert.NotEmpty(t, in.Responses, "%s has no response templates", name)
	}
}

func TestLoad_CoreIntentsPresent(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)
	for _, name := range []string{
		"greeting", "help", "goodbye", "general_query", "context_clear",
		"bug_create", "bug_list", "bug_assign", "bug_update_status",
		"team_create", "team_switch", "dashboard",
	} {
		_, ok := cat.Get(name)
		assert.True(t, ok, "missing intent %s", name)
	}
}

func TestLoad_RequiredEntitiesDeclared(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	tests := map[string][]string{
		"bug_create":        {"title"},
		"bug_assign":        {"bugId", "assignedUserId"},
		"bug_update_status": {"bugId", "status"},
		"team_create":       {"teamName"},
		"comment_add":       {"bugId", "text"},
		"file_attach":       {"bugId", "fileName"},
	}
	for name, want := range tests {
		in, ok := cat.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, want, in.RequiredEntities, name)
	}
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_ValidCatalog(t *testing.T) {
	path := writeCatalog(t, `{
		"version": "1",
		"intents": [
			{"name": "greeting", "patterns": ["hello"], "responses": ["Hi!"]}
		]
	}`)
	cat, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"greeting"}, cat.Names())
}

func TestLoadFile_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing responses",
			content: `{"version": "1", "intents": [{"name": "x", "patterns": ["a"]}]}`,
		},
		{
			name:    "bad intent name",
			content: `{"version": "1", "intents": [{"name": "Bad Name!", "patterns": ["a"], "responses": ["b"]}]}`,
		},
		{
			name:    "missing intents",
			content: `{"version": "1"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeCatalog(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_DuplicateIntentRejected(t *testing.T) {
	path := writeCatalog(t, `{
		"version": "1",
		"intents": [
			{"name": "greeting", "patterns": ["hello"], "responses": ["Hi!"]},
			{"name": "greeting", "patterns": ["hey"], "responses": ["Yo!"]}
		]
	}`)
	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate intent")
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
