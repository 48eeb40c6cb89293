package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Config{Level: "debug", Format: "json", OutputPaths: []string{path}})
	require.NoError(t, err)

	log.Info("modification served", zap.String("recipe_id", "r-1"))
	require.NoError(t, log.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &line))
	assert.Equal(t, "modification served", line["msg"])
	assert.Equal(t, "r-1", line["recipe_id"])
}

func TestNewFallsBackToInfoLevel(t *testing.T) {
	log, err := New(Config{Level: "not-a-level", Format: "console"})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zap.DebugLevel))
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
}

func TestNewAttachesServiceFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Config{Level: "info", OutputPaths: []string{path}, Service: "recipemod", Version: "1.2.3"})
	require.NoError(t, err)

	log.Warn("quota exceeded")
	require.NoError(t, log.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &line))
	assert.Equal(t, "recipemod", line["service"])
	assert.Equal(t, "1.2.3", line["version"])
	assert.Equal(t, "warn", line["level"])
}

func TestNewSamplesRepeatedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Config{OutputPaths: []string{path}, Sample: true})
	require.NoError(t, err)

	for i := 0; i < 250; i++ {
		log.Info("cache hit")
	}
	require.NoError(t, log.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Count(string(raw), "\n")
	assert.Less(t, lines, 250)
	assert.GreaterOrEqual(t, lines, 100)
}
