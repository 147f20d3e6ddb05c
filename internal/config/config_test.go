package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[neo4j]
uri = "neo4j://graph:7687"

[recommend]
threshold = 3.5

[explain]
max_hops = 4
cache_ttl = "90s"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "neo4j://graph:7687", cfg.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Neo4j.User)
	assert.Equal(t, 3.5, cfg.Recommend.Threshold)
	assert.Equal(t, 5, cfg.Recommend.DefaultN)
	assert.Equal(t, 4, cfg.Explain.MaxHops)
	assert.Equal(t, 90*time.Second, cfg.Explain.CacheTTL.Duration)
	assert.Equal(t, 50, cfg.Explain.FanOut)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	require.NotNil(t, cfg)
	assert.Equal(t, 4.0, cfg.Recommend.Threshold)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[explain]\ncache_ttl = \"soon\"\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("NEO4J_URI", "bolt://env:7687")
	t.Setenv("NEO4J_PASSWORD", "secret")
	t.Setenv("EMBEDDINGS_PATH", "/data/emb.kv")
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_ENABLED", "true")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "bolt://env:7687", cfg.Neo4j.URI)
	assert.Equal(t, "secret", cfg.Neo4j.Password)
	assert.Equal(t, "/data/emb.kv", cfg.Embeddings.Path)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.LLM.Enabled)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg.Embeddings.Format = "parquet"
	cfg.Explain.MaxHops = 1
	cfg.Recommend.MaxN = 2
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embeddings.format")
	assert.Contains(t, err.Error(), "max_hops")
	assert.Contains(t, err.Error(), "default_n")
}

func TestShippedConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.toml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Default(), cfg)
}
