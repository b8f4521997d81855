package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Service names. Each wizard step talks to one of these.
const (
	ServiceProfile    = "profile"
	ServicePreprocess = "preprocess"
	ServiceExtract    = "extract"
	ServiceEvaluate   = "evaluate"
	ServiceClassify   = "classify"
	ServiceTest       = "test"
	ServiceExplain    = "explain"
)

// ServiceNames lists the services in wizard order.
var ServiceNames = []string{
	ServiceProfile,
	ServicePreprocess,
	ServiceExtract,
	ServiceEvaluate,
	ServiceClassify,
	ServiceTest,
	ServiceExplain,
}

// Explanation backends.
const (
	ExplainBackendService = "service"
	ExplainBackendGenAI   = "genai"
)

// ExplainBackends lists the supported explanation backends.
var ExplainBackends = []string{ExplainBackendService, ExplainBackendGenAI}

// ServicesConfig maps a service name to its endpoint configuration.
type ServicesConfig map[string]ServiceConfig

// ServiceConfig configures a single analysis service.
type ServiceConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"` // e.g., "30s", "2m"
}

// DefaultServices returns the local development endpoints (ports 8000-8010).
func DefaultServices() ServicesConfig {
	return ServicesConfig{
		ServiceProfile:    {BaseURL: "http://localhost:8000", Timeout: "120s"},
		ServicePreprocess: {BaseURL: "http://localhost:8001", Timeout: "120s"},
		ServiceExtract:    {BaseURL: "http://localhost:8002", Timeout: "120s"},
		ServiceEvaluate:   {BaseURL: "http://localhost:8003", Timeout: "60s"},
		ServiceClassify:   {BaseURL: "http://localhost:8004", Timeout: "300s"},
		ServiceTest:       {BaseURL: "http://localhost:8005", Timeout: "120s"},
		ServiceExplain:    {BaseURL: "http://localhost:8010", Timeout: "60s"},
	}
}

// GetTimeout returns the request timeout as a duration.
func (s ServiceConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

func (s ServiceConfig) validate(name string) error {
	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("service %q has an invalid base_url %q", name, s.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("service %q base_url must be http or https, got %q", name, u.Scheme)
	}
	if s.Timeout != "" {
		if _, err := time.ParseDuration(s.Timeout); err != nil {
			return fmt.Errorf("service %q has an invalid timeout %q: %w", name, s.Timeout, err)
		}
	}
	return nil
}

// serviceEnvVar returns the override variable for a service, e.g.
// BREATHPLAT_PREPROCESS_URL.
func serviceEnvVar(name string) string {
	return "BREATHPLAT_" + strings.ToUpper(name) + "_URL"
}
