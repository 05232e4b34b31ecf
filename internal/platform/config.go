package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/capsule/pkg/adapters/fs"
	"github.com/aretw0/capsule/pkg/adapters/openai"
	"github.com/aretw0/capsule/pkg/narrative"
)

// ConfigFile is the name of the config file inside the system directory.
const ConfigFile = "config.yaml"

// Environment variables read by LoadConfig. The API key is only ever
// taken from the environment.
const (
	EnvAPIKey       = "CAPSULE_API_KEY"
	EnvLegacyAPIKey = "SILICONFLOW_API_KEY"
	EnvBaseURL      = "API_BASE_URL"
	EnvModel        = "CAPSULE_MODEL"
)

// Config is the vault configuration stored in .capsule/config.yaml.
type Config struct {
	Adapter       string    `yaml:"adapter"`
	StoreFile     string    `yaml:"store_file"`
	Location      string    `yaml:"location,omitempty"`
	Locale        string    `yaml:"locale"`
	Versioning    *bool     `yaml:"versioning,omitempty"`
	KnowledgeBase string    `yaml:"knowledge_base"`
	LLM           LLMConfig `yaml:"llm"`
}

// LLMConfig configures the narrative and transcription endpoint.
type LLMConfig struct {
	BaseURL            string        `yaml:"base_url"`
	Model              string        `yaml:"model"`
	TranscriptionModel string        `yaml:"transcription_model"`
	Timeout            time.Duration `yaml:"timeout"`
	Temperature        float32       `yaml:"temperature"`

	APIKey string `yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Adapter:       AdapterFS,
		StoreFile:     fs.DefaultFile,
		Locale:        "zh",
		KnowledgeBase: "knowledge_base",
		LLM: LLMConfig{
			BaseURL:            openai.DefaultBaseURL,
			Model:              openai.DefaultModel,
			TranscriptionModel: openai.DefaultTranscriptionModel,
			Timeout:            narrative.DefaultTimeout,
			Temperature:        narrative.DefaultTemperature,
		},
	}
}

// ConfigPath returns the location of the config file of a vault.
func ConfigPath(vault, systemDir string) string {
	if systemDir == "" {
		systemDir = fs.DefaultSystemDir
	}
	return filepath.Join(vault, systemDir, ConfigFile)
}

// LoadConfig reads the config file at path, applies defaults and
// environment overrides, and validates the result. A missing file yields
// the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// applyDefaults sets default values for any unset option.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Adapter == "" {
		c.Adapter = d.Adapter
	}
	if c.StoreFile == "" {
		c.StoreFile = d.StoreFile
	}
	if c.Locale == "" {
		c.Locale = d.Locale
	}
	if c.KnowledgeBase == "" {
		c.KnowledgeBase = d.KnowledgeBase
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = d.LLM.BaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = d.LLM.Model
	}
	if c.LLM.TranscriptionModel == "" {
		c.LLM.TranscriptionModel = d.LLM.TranscriptionModel
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = d.LLM.Timeout
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = d.LLM.Temperature
	}
}

func (c *Config) applyEnv() {
	if key := os.Getenv(EnvAPIKey); key != "" {
		c.LLM.APIKey = key
	} else {
		c.LLM.APIKey = os.Getenv(EnvLegacyAPIKey)
	}
	if url := os.Getenv(EnvBaseURL); url != "" {
		c.LLM.BaseURL = url
	}
	if model := os.Getenv(EnvModel); model != "" {
		c.LLM.Model = model
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Adapter {
	case AdapterFS, AdapterSQLite:
	default:
		return fmt.Errorf("adapter must be %q or %q, got %q", AdapterFS, AdapterSQLite, c.Adapter)
	}
	switch c.Locale {
	case "zh", "en":
	default:
		return fmt.Errorf("locale must be zh or en, got %q", c.Locale)
	}
	if _, err := c.TimeLocation(); err != nil {
		return fmt.Errorf("location: %w", err)
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	return nil
}

// TimeLocation resolves Location; empty means the local zone.
func (c *Config) TimeLocation() (*time.Location, error) {
	if c.Location == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Location)
}

// KnowledgeBaseDir resolves the knowledge-base directory against the vault.
func (c *Config) KnowledgeBaseDir(vault string) string {
	if filepath.IsAbs(c.KnowledgeBase) {
		return c.KnowledgeBase
	}
	return filepath.Join(vault, c.KnowledgeBase)
}

// SaveConfig writes cfg to path. The API key is never written.
func SaveConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
