package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable applyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range ServiceNames {
		t.Setenv(serviceEnvVar(name), "")
	}
	for _, v := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "BREATHPLAT_EXPLAIN_BACKEND",
		"BREATHPLAT_DATA_DIR", "BREATHPLAT_JOURNAL_PATH", "BREATHPLAT_LOG_LEVEL"} {
		t.Setenv(v, "")
	}
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "breathplat", cfg.Name)
	assert.Equal(t, ExplainBackendService, cfg.Explain.Backend)
	assert.Len(t, cfg.Services, len(ServiceNames))
	assert.Equal(t, "http://localhost:8000", cfg.Services[ServiceProfile].BaseURL)
	assert.Equal(t, "http://localhost:8010", cfg.Services[ServiceExplain].BaseURL)
	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Services, cfg.Services)
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Services[ServiceClassify] = ServiceConfig{BaseURL: "http://ml:9000", Timeout: "10m"}
	cfg.Journal.Enabled = true
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://ml:9000", loaded.Services[ServiceClassify].BaseURL)
	assert.True(t, loaded.Journal.Enabled)
}

func TestLoad_PartialServicesKeepDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
services:
  extract:
    base_url: http://features:7000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://features:7000", cfg.Services[ServiceExtract].BaseURL)
	assert.Equal(t, "120s", cfg.Services[ServiceExtract].Timeout, "timeout falls back to default")
	assert.Equal(t, "http://localhost:8001", cfg.Services[ServicePreprocess].BaseURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services: [broken"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

// =============================================================================
// ENV OVERRIDES
// =============================================================================

func TestEnvOverrides(t *testing.T) {
	t.Run("service url", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BREATHPLAT_PREPROCESS_URL", "http://pre:1234")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "http://pre:1234", cfg.Services[ServicePreprocess].BaseURL)
		assert.Equal(t, "120s", cfg.Services[ServicePreprocess].Timeout)
	})

	t.Run("google key wins over gemini key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "gem")
		t.Setenv("GOOGLE_API_KEY", "goog")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "goog", cfg.Explain.APIKey)
	})

	t.Run("journal path enables journal", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BREATHPLAT_JOURNAL_PATH", "/tmp/j.db")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.True(t, cfg.Journal.Enabled)
		assert.Equal(t, "/tmp/j.db", cfg.Journal.Path)
	})
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad url", func(c *Config) { c.Services[ServiceExtract] = ServiceConfig{BaseURL: "not a url"} }, true},
		{"ftp scheme", func(c *Config) { c.Services[ServiceExtract] = ServiceConfig{BaseURL: "ftp://x"} }, true},
		{"bad timeout", func(c *Config) {
			c.Services[ServiceTest] = ServiceConfig{BaseURL: "http://x", Timeout: "soon"}
		}, true},
		{"missing service", func(c *Config) { delete(c.Services, ServiceEvaluate) }, true},
		{"genai without key", func(c *Config) { c.Explain.Backend = ExplainBackendGenAI }, true},
		{"genai with key, no explain service", func(c *Config) {
			c.Explain.Backend = ExplainBackendGenAI
			c.Explain.APIKey = "k"
			delete(c.Services, ServiceExplain)
		}, false},
		{"unknown backend", func(c *Config) { c.Explain.Backend = "oracle" }, true},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Data.Dir = "/data"

	assert.Equal(t, "/data/a.csv", cfg.ResolveDataPath("a.csv"))
	assert.Equal(t, "/abs/b.csv", cfg.ResolveDataPath("/abs/b.csv"))
	assert.NotZero(t, cfg.GetExplainTimeout())
	assert.Equal(t, time.Minute, ServiceConfig{Timeout: "bogus"}.GetTimeout())
}
