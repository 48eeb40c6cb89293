package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(sqlFiles, "sql/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(sqlFiles, "sql/*.down.sql")
	require.NoError(t, err)

	assert.Len(t, ups, 3)
	assert.Len(t, downs, len(ups))
}

func TestMigrateLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := migrateLogger{zap.New(core)}

	l.Printf("Start buffering %d/u %s\n", 1, "create_recipes")

	assert.True(t, l.Verbose())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Start buffering 1/u create_recipes", logs.All()[0].Message)

	quiet, _ := observer.New(zapcore.InfoLevel)
	assert.False(t, migrateLogger{zap.New(quiet)}.Verbose())
}
