// Package config provides configuration loading for glosser.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "glosser.yaml"

var validate = validator.New()

// Config represents the complete glosser configuration.
type Config struct {
	Documents DocumentsConfig `yaml:"documents"`
	Storage   StorageConfig   `yaml:"storage"`
	View      ViewConfig      `yaml:"view"`
	Report    ReportConfig    `yaml:"report"`
	Hints     HintsConfig     `yaml:"hints"`
	Log       LogConfig       `yaml:"log"`
}

// DocumentsConfig locates the three base documents.
type DocumentsConfig struct {
	Alignments string `yaml:"alignments"`
	Glossary   string `yaml:"glossary"`
	Rules      string `yaml:"rules"`
}

// StorageConfig selects where patches are kept.
type StorageConfig struct {
	// Backend is "sqlite" or "json".
	Backend string `yaml:"backend" validate:"required,oneof=sqlite json"`
	Path    string `yaml:"path" validate:"required"`
}

// ViewConfig tunes the listings.
type ViewConfig struct {
	// Language overrides the collation locale; empty uses the alignment
	// document's target language.
	Language string `yaml:"language" validate:"omitempty,bcp47_language_tag"`
}

// ReportConfig tunes the status report.
type ReportConfig struct {
	Workers int `yaml:"workers" validate:"gte=1,lte=64"`
}

// HintsConfig configures morphological hints.
type HintsConfig struct {
	// Dictionary is an optional jmdict-simplified JSON file.
	Dictionary string `yaml:"dictionary"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Documents: DocumentsConfig{
			Alignments: "alignments.json",
			Glossary:   "glossary.json",
			Rules:      "rules.json",
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    "glosser.db",
		},
		Report: ReportConfig{Workers: 4},
		Log:    LogConfig{Level: "info"},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.resolveRelative(filepath.Dir(path))
	return config, nil
}

// Load reads path if it exists, otherwise returns the defaults. A missing
// file is only an error when explicit is set.
func Load(path string, explicit bool) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadFromFile(path)
}

// resolveRelative makes file paths relative to the config file's directory.
func (c *Config) resolveRelative(dir string) {
	for _, p := range []*string{&c.Documents.Alignments, &c.Documents.Glossary, &c.Documents.Rules, &c.Storage.Path, &c.Hints.Dictionary} {
		if *p != "" && *p != ":memory:" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Documents.Alignments != "" {
		c.Documents.Alignments = other.Documents.Alignments
	}
	if other.Documents.Glossary != "" {
		c.Documents.Glossary = other.Documents.Glossary
	}
	if other.Documents.Rules != "" {
		c.Documents.Rules = other.Documents.Rules
	}
	if other.Storage.Backend != "" {
		c.Storage.Backend = other.Storage.Backend
	}
	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}
	if other.View.Language != "" {
		c.View.Language = other.View.Language
	}
	if other.Report.Workers != 0 {
		c.Report.Workers = other.Report.Workers
	}
	if other.Hints.Dictionary != "" {
		c.Hints.Dictionary = other.Hints.Dictionary
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}
