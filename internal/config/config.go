package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all breathplat configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Analysis services, keyed by service name (profile, preprocess, ...)
	Services ServicesConfig `yaml:"services"`

	// Explanation backend used after classification
	Explain ExplainConfig `yaml:"explain"`

	// Input and output locations
	Data DataConfig `yaml:"data"`

	// Optional run journal
	Journal JournalConfig `yaml:"journal"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Wizard appearance
	UI UIConfig `yaml:"ui"`
}

// ExplainConfig selects and configures the explanation backend.
type ExplainConfig struct {
	Backend string `yaml:"backend"` // service, genai
	Model   string `yaml:"model"`   // genai model name
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// DataConfig configures where data files are read from and reports written to.
type DataConfig struct {
	Dir       string `yaml:"dir"`
	OutputDir string `yaml:"output_dir"`
	Watch     bool   `yaml:"watch"` // list new files in the import step as they appear
}

// JournalConfig configures the SQLite run journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// UIConfig configures the wizard.
type UIConfig struct {
	Theme    string `yaml:"theme"` // auto, light, dark
	WordWrap int    `yaml:"word_wrap"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:     "breathplat",
		Version:  "0.4.0",
		Services: DefaultServices(),
		Explain: ExplainConfig{
			Backend: ExplainBackendService,
			Model:   "gemini-2.5-flash",
			Timeout: "60s",
		},
		Data: DataConfig{
			Dir:       ".",
			OutputDir: "reports",
			Watch:     true,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    filepath.Join(DefaultHome(), "journal.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File:   filepath.Join(DefaultHome(), "logs", "breathplat.log"),
		},
		UI: UIConfig{
			Theme:    "auto",
			WordWrap: 80,
		},
	}
}

// DefaultHome returns ~/.breathplat, or .breathplat when the home directory
// cannot be determined.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".breathplat"
	}
	return filepath.Join(home, ".breathplat")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultHome(), "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Services missing from the file keep their defaults
	for name, def := range DefaultServices() {
		svc, ok := cfg.Services[name]
		if !ok {
			cfg.Services[name] = def
			continue
		}
		if svc.Timeout == "" {
			svc.Timeout = def.Timeout
			cfg.Services[name] = svc
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if c.Services == nil {
		c.Services = ServicesConfig{}
	}
	for _, name := range ServiceNames {
		if url := os.Getenv(serviceEnvVar(name)); url != "" {
			svc := c.Services[name]
			svc.BaseURL = url
			c.Services[name] = svc
		}
	}

	// GOOGLE_API_KEY wins over GEMINI_API_KEY, matching the genai client
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Explain.APIKey = key
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.Explain.APIKey = key
	}
	if backend := os.Getenv("BREATHPLAT_EXPLAIN_BACKEND"); backend != "" {
		c.Explain.Backend = backend
	}

	if dir := os.Getenv("BREATHPLAT_DATA_DIR"); dir != "" {
		c.Data.Dir = dir
	}
	if path := os.Getenv("BREATHPLAT_JOURNAL_PATH"); path != "" {
		c.Journal.Path = path
		c.Journal.Enabled = true
	}
	if level := os.Getenv("BREATHPLAT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, name := range ServiceNames {
		svc, ok := c.Services[name]
		if !ok {
			if name == ServiceExplain && c.Explain.Backend != ExplainBackendService {
				continue
			}
			return fmt.Errorf("service %q is not configured", name)
		}
		if err := svc.validate(name); err != nil {
			return err
		}
	}

	switch c.Explain.Backend {
	case ExplainBackendService:
	case ExplainBackendGenAI:
		if c.Explain.APIKey == "" {
			return fmt.Errorf("explain backend %q needs an API key (set GEMINI_API_KEY or GOOGLE_API_KEY)", ExplainBackendGenAI)
		}
	default:
		return fmt.Errorf("invalid explain backend: %s (valid: %v)", c.Explain.Backend, ExplainBackends)
	}
	if _, err := time.ParseDuration(c.Explain.Timeout); c.Explain.Timeout != "" && err != nil {
		return fmt.Errorf("invalid explain timeout %q: %w", c.Explain.Timeout, err)
	}

	switch c.UI.Theme {
	case "", "auto", "light", "dark":
	default:
		return fmt.Errorf("invalid ui theme: %s", c.UI.Theme)
	}

	return c.Logging.validate()
}

// GetExplainTimeout returns the explanation timeout as a duration.
func (c *Config) GetExplainTimeout() time.Duration {
	d, err := time.ParseDuration(c.Explain.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// ResolveDataPath resolves a file name against the data directory unless it
// is already absolute.
func (c *Config) ResolveDataPath(name string) string {
	if filepath.IsAbs(name) || c.Data.Dir == "" {
		return name
	}
	return filepath.Join(c.Data.Dir, name)
}
