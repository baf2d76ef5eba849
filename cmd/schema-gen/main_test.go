package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateGroupSchema(t *testing.T) {
	for _, group := range schemaGroups() {
		t.Run(group.Name, func(t *testing.T) {
			schema := generateGroupSchema(group)
			defs, ok := schema["$defs"].(map[string]any)
			require.True(t, ok)
			assert.GreaterOrEqual(t, len(defs), len(group.Types))
			assert.Equal(t, capitalize(group.Name)+" API Types", schema["title"])
		})
	}
}

func TestGenerateGroupSchema_IncludesNestedTypes(t *testing.T) {
	groups := schemaGroups()
	schema := generateGroupSchema(groups[1])
	defs := schema["$defs"].(map[string]any)

	for _, name := range []string{"ImportConfig", "Progress", "Report", "Config", "Recommendation"} {
		assert.Contains(t, defs, name)
	}
}

func TestWriteSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imports.json")
	require.NoError(t, writeSchema(generateGroupSchema(schemaGroups()[0]), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "https://kosarica.hr/schemas/import-service/imports.json", parsed["$id"])
}
