package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "public/content/publicaties.json", cfg.Dataset.Path)
	assert.Equal(t, "public/content/themes.json", cfg.Taxonomy.ThemesPath)
	assert.Equal(t, 2, cfg.Taxonomy.MaxDistance)
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, "text", cfg.Normalize.Strategy)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 0.001)
	assert.True(t, cfg.LLM.ClampVocab)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, "basic", cfg.Enrich.Profile)
	assert.Equal(t, 1, cfg.Enrich.Burst)
	assert.Equal(t, "checkpoints", cfg.Checkpoint.Dir)
	assert.Equal(t, "last", cfg.Merge.Policy)
	assert.Len(t, cfg.Merge.Sources, 4)
	assert.Equal(t, 3, cfg.Resilience.MaxAttempts)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
llm:
  provider: gemini
enrich:
  profile: extended
  checkpoint_every: 3
feeds:
  - name: stibbe
    url: https://example.com/rss.xml
    source: Stibbe
    type: Blog
  - name: vng
    url: https://example.com/vng.xml
    source: VNG
    default_type: Overig
    type_keywords:
      handreiking: Handreiking
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "extended", cfg.Enrich.Profile)
	assert.Equal(t, 3, cfg.Enrich.CheckpointEvery)
	require.Len(t, cfg.Feeds, 2)
	assert.Equal(t, "Stibbe", cfg.Feeds[0].Source)
	assert.Equal(t, "Handreiking", cfg.Feeds[1].TypeKeywords["handreiking"])
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
llm:
  provider: openai
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PUBENRICH_LLM_PROVIDER", "anthropic")
	t.Setenv("PUBENRICH_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PUBENRICH_ANTHROPIC_KEY=sk-from-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("PUBENRICH_ANTHROPIC_KEY") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-dotenv", cfg.Anthropic.Key)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with the defaults validation cares about.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.Temperature = 0.3
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Dataset.Path = "publicaties.json"
	cfg.Merge.Policy = "fill"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateEnrich_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("enrich"))
}

func TestValidateEnrich_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""
	cfg.Dataset.Path = ""
	cfg.LLM.Temperature = 3

	err := cfg.Validate("enrich")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "dataset.path is required")
	assert.Contains(t, err.Error(), "llm.temperature")
}

func TestValidateEnrich_ProviderKeys(t *testing.T) {
	cfg := validDefaults()
	cfg.LLM.Provider = "openai"
	assert.ErrorContains(t, cfg.Validate("enrich"), "openai.key")

	cfg.OpenAI.Key = "sk"
	assert.NoError(t, cfg.Validate("enrich"))

	cfg.LLM.Provider = "gemini"
	assert.ErrorContains(t, cfg.Validate("enrich"), "gemini.key")

	cfg.LLM.Provider = "cohere"
	assert.ErrorContains(t, cfg.Validate("enrich"), "llm.provider")
}

func TestValidateMergePolicy(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("merge"))

	cfg.Merge.Policy = "first"
	assert.ErrorContains(t, cfg.Validate("merge"), "merge.policy")
}

func TestValidateIngest(t *testing.T) {
	cfg := validDefaults()
	assert.ErrorContains(t, cfg.Validate("ingest"), "at least one feed")

	cfg.Feeds = []FeedConfig{{Name: "x"}}
	assert.ErrorContains(t, cfg.Validate("ingest"), "feeds[0].url is required")

	cfg.Feeds[0].URL = "https://example.com/rss"
	assert.NoError(t, cfg.Validate("ingest"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
