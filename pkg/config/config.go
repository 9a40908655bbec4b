package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/campusdesk/campusdesk/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config holds all campusdesk configuration.
type Config struct {
	Listen        string             `yaml:"listen"`
	DBPath        string             `yaml:"db_path"`
	KnowledgePath string             `yaml:"knowledge_path"`
	LogLevel      string             `yaml:"log_level"`
	Generator     GeneratorConfig    `yaml:"generator"`
	Translator    TranslatorConfig   `yaml:"translator"`
	Cache         CacheConfig        `yaml:"cache"`
	Breaker       BreakerConfig      `yaml:"breaker"`
	Budget        BudgetConfig       `yaml:"budget"`
	Audit         models.AuditConfig `yaml:"audit"`
}

// GeneratorConfig lists the LLM providers and the order they are tried in.
type GeneratorConfig struct {
	Timeout   time.Duration    `yaml:"timeout"`
	Fallback  []string         `yaml:"fallback"`
	Providers []ProviderConfig `yaml:"providers"`
}

// ProviderConfig defines an upstream LLM provider.
// Type is "gemini" (default) or "openai".
type ProviderConfig struct {
	Name        string  `yaml:"name"`
	Type        string  `yaml:"type"`
	Model       string  `yaml:"model"`
	URL         string  `yaml:"url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float32 `yaml:"temperature"`
}

// TranslatorConfig selects the translation backend.
// Backend is "google" (default) or "openai".
type TranslatorConfig struct {
	Backend string        `yaml:"backend"`
	Timeout time.Duration `yaml:"timeout"`
	URL     string        `yaml:"url"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"api_key"`
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheLRU    = "lru"
	CacheSQLite = "sqlite"
)

// Failure policies for non-success cache entries.
const (
	FailureExpire = "expire"
	FailureSticky = "sticky"
	FailureSkip   = "skip"
)

// CacheConfig controls the response cache.
type CacheConfig struct {
	Backend       string        `yaml:"backend"`
	Size          int           `yaml:"size"`
	FailurePolicy string        `yaml:"failure_policy"`
	FailureTTL    time.Duration `yaml:"failure_ttl"`
}

// BreakerConfig controls the per-provider circuit breakers.
type BreakerConfig struct {
	Failures uint32        `yaml:"failures"`
	Cooldown time.Duration `yaml:"cooldown"`
}

// BudgetConfig controls upstream call budgets.
type BudgetConfig struct {
	Enabled  bool                  `yaml:"enabled"`
	Policies []models.BudgetPolicy `yaml:"policies"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:        ":5000",
		DBPath:        "campusdesk.db",
		KnowledgePath: "knowledge_base.json",
		LogLevel:      "info",
		Generator: GeneratorConfig{
			Timeout: 30 * time.Second,
			Providers: []ProviderConfig{
				{Name: "gemini", Type: "gemini", Model: "gemini-1.5-flash", Temperature: 0.7},
			},
		},
		Translator: TranslatorConfig{
			Backend: "google",
			Timeout: 10 * time.Second,
			URL:     "https://translate.googleapis.com",
		},
		Cache: CacheConfig{
			Backend:       CacheMemory,
			Size:          10000,
			FailurePolicy: FailureExpire,
			FailureTTL:    time.Minute,
		},
		Breaker: BreakerConfig{
			Failures: 5,
			Cooldown: 30 * time.Second,
		},
		Audit: models.AuditConfig{
			DBPath:        "campusdesk-audit.db",
			RetentionDays: 30,
			Include:       []string{"queries", "responses"},
			MaxBodySize:   8192,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns Default when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// envKeys maps provider types to the conventional API key variables.
var envKeys = map[string]string{
	"gemini": "GOOGLE_API_KEY",
	"openai": "OPENAI_API_KEY",
}

// ApplyEnvDefaults fills empty API keys from the conventional environment
// variables for each provider type.
func (c *Config) ApplyEnvDefaults(lookup func(string) string) {
	for i := range c.Generator.Providers {
		p := &c.Generator.Providers[i]
		if p.APIKey == "" {
			p.APIKey = lookup(envKeys[p.ProviderType()])
		}
	}
	if c.Translator.Backend == "openai" && c.Translator.APIKey == "" {
		c.Translator.APIKey = lookup(envKeys["openai"])
	}
}

// Validate reports configuration that cannot serve requests.
func (c *Config) Validate() error {
	usable := 0
	for _, p := range c.Generator.Providers {
		if p.Name == "" {
			return fmt.Errorf("generator provider without name")
		}
		switch p.ProviderType() {
		case "gemini", "openai":
		default:
			return fmt.Errorf("provider %q: unknown type %q", p.Name, p.Type)
		}
		if p.APIKey != "" {
			usable++
		}
	}
	if usable == 0 {
		return fmt.Errorf("no generator provider has an API key (set GOOGLE_API_KEY or OPENAI_API_KEY)")
	}

	switch c.Cache.Backend {
	case CacheMemory, CacheSQLite:
	case CacheLRU:
		if c.Cache.Size <= 0 {
			return fmt.Errorf("cache: lru backend needs a positive size")
		}
	default:
		return fmt.Errorf("cache: unknown backend %q", c.Cache.Backend)
	}

	switch c.Cache.FailurePolicy {
	case FailureExpire:
		if c.Cache.FailureTTL <= 0 {
			return fmt.Errorf("cache: expire failure_policy needs a positive failure_ttl")
		}
	case FailureSticky, FailureSkip:
	default:
		return fmt.Errorf("cache: unknown failure_policy %q", c.Cache.FailurePolicy)
	}

	switch c.Translator.Backend {
	case "google", "openai":
	default:
		return fmt.Errorf("translator: unknown backend %q", c.Translator.Backend)
	}

	for _, p := range c.Budget.Policies {
		if p.Kind != models.CallGeneration && p.Kind != models.CallTranslation {
			return fmt.Errorf("budget: unknown kind %q", p.Kind)
		}
	}
	return nil
}

// ProviderType returns the provider type, defaulting to gemini.
func (p ProviderConfig) ProviderType() string {
	if p.Type == "" {
		return "gemini"
	}
	return p.Type
}
