package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap/zaptest"

	"github.com/alchemorsel/recipemod/internal/infrastructure/ai"
	"github.com/alchemorsel/recipemod/internal/infrastructure/ai/ollama"
	"github.com/alchemorsel/recipemod/internal/infrastructure/ai/openai"
	"github.com/alchemorsel/recipemod/internal/infrastructure/config"
	gormstore "github.com/alchemorsel/recipemod/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/recipemod/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/recipemod/test/testutils"
)

func TestModule_GraphIsComplete(t *testing.T) {
	err := fx.ValidateApp(
		fx.Supply(ConfigPath("")),
		Module,
	)
	assert.NoError(t, err)
}

func TestNewEntryStore_SelectsBackend(t *testing.T) {
	db := testutils.NewSQLiteDB(t)
	logger := zaptest.NewLogger(t)

	cfg := &config.Config{Cache: config.CacheConfig{Backend: config.BackendMemory, Shards: 4}}
	store, err := NewEntryStore(cfg, db, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &memory.EntryStore{}, store)

	cfg.Cache.Backend = config.BackendDatabase
	store, err = NewEntryStore(cfg, db, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &gormstore.EntryStore{}, store)
}

func TestNewUsageStore_SelectsBackend(t *testing.T) {
	db := testutils.NewSQLiteDB(t)

	cfg := &config.Config{Quota: config.QuotaConfig{Backend: config.BackendMemory}}
	assert.IsType(t, &memory.UsageStore{}, NewUsageStore(cfg, db, nil))

	cfg.Quota.Backend = config.BackendDatabase
	assert.IsType(t, &gormstore.UsageStore{}, NewUsageStore(cfg, db, nil))
}

func TestNewModelClient_SelectsProvider(t *testing.T) {
	logger := zaptest.NewLogger(t)

	client, err := NewModelClient(&config.Config{AI: ai.Config{Provider: ai.ProviderOllama}}, logger)
	require.NoError(t, err)
	assert.IsType(t, &ollama.Client{}, client)

	client, err = NewModelClient(&config.Config{AI: ai.Config{Provider: ai.ProviderOpenAI, Model: "gpt-4o-mini"}}, logger)
	require.NoError(t, err)
	assert.IsType(t, &openai.Client{}, client)

	_, err = NewModelClient(&config.Config{AI: ai.Config{Provider: "bard"}}, logger)
	assert.Error(t, err)
}
