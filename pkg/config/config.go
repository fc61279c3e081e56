package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete exporter configuration
type Config struct {
	API      APIConfig      `yaml:"api"`
	Export   ExportConfig   `yaml:"export"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Warnings WarningsConfig `yaml:"warnings"`
	Debug    DebugConfig    `yaml:"debug"`
	OSS      OSSConfig      `yaml:"oss"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// APIConfig contains the remote catalog endpoint and credentials
type APIConfig struct {
	URL      string `yaml:"url"`
	Key      string `yaml:"key"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Field describes one exported column
type Field struct {
	Name       string `yaml:"name"`
	PrimaryKey bool   `yaml:"primaryKey"`
	Required   bool   `yaml:"required"`
	Enumerated bool   `yaml:"enumerated"`
}

// ExportConfig contains the output location and column layout
type ExportConfig struct {
	OutputDirectory string  `yaml:"output_directory"`
	Format          string  `yaml:"format"` // csv or xlsx
	Fields          []Field `yaml:"fields"`
}

// FetchConfig contains paging and failure-policy settings
type FetchConfig struct {
	PageSize int           `yaml:"page_size"`
	Timeout  time.Duration `yaml:"timeout"`
	// MaxConsecutiveSkips bounds back-to-back item fetch failures before
	// the run is aborted.
	MaxConsecutiveSkips int `yaml:"max_consecutive_skips"`
}

// WarningsConfig toggles the data-quality checks
type WarningsConfig struct {
	SingletonFields    bool `yaml:"singleton_fields"`
	MissingFields      bool `yaml:"missing_fields"`
	UnusedFields       bool `yaml:"unused_fields"`
	SingletonThreshold int  `yaml:"singleton_threshold"`
}

// DebugConfig contains testing aids
type DebugConfig struct {
	// Limit truncates the run to a fixed number of items; 0 disables it.
	Limit int `yaml:"limit"`
}

// OSSConfig contains optional Alibaba Cloud OSS upload settings
type OSSConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	Bucket          string        `yaml:"bucket"`
	AccessKeyID     string        `yaml:"access_key_id"`
	AccessKeySecret string        `yaml:"access_key_secret"`
	SignedURLExpiry time.Duration `yaml:"signed_url_expiry"`
	MaxRetries      int           `yaml:"max_retries"`
}

// Enabled reports whether upload settings are present
func (o *OSSConfig) Enabled() bool {
	return o.Endpoint != "" && o.Bucket != ""
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	Output        string `yaml:"output"`
	EnableTracing bool   `yaml:"enable_tracing"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Export: ExportConfig{
			OutputDirectory: "./exports",
			Format:          "csv",
		},
		Fetch: FetchConfig{
			PageSize:            100,
			Timeout:             30 * time.Second,
			MaxConsecutiveSkips: 10,
		},
		Warnings: WarningsConfig{
			SingletonFields:    true,
			MissingFields:      true,
			UnusedFields:       true,
			SingletonThreshold: 3,
		},
		OSS: OSSConfig{
			SignedURLExpiry: 7 * 24 * time.Hour,
			MaxRetries:      3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if set
	cfg.applyEnvOverrides()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if val := os.Getenv("TMS_API_URL"); val != "" {
		c.API.URL = val
	}
	if val := os.Getenv("TMS_API_KEY"); val != "" {
		c.API.Key = val
	}
	if val := os.Getenv("TMS_USERNAME"); val != "" {
		c.API.Username = val
	}
	if val := os.Getenv("TMS_PASSWORD"); val != "" {
		c.API.Password = val
	}
	if val := os.Getenv("OSS_ENDPOINT"); val != "" {
		c.OSS.Endpoint = val
	}
	if val := os.Getenv("OSS_BUCKET"); val != "" {
		c.OSS.Bucket = val
	}
	if val := os.Getenv("OSS_ACCESS_KEY_ID"); val != "" {
		c.OSS.AccessKeyID = val
	}
	if val := os.Getenv("OSS_ACCESS_KEY_SECRET"); val != "" {
		c.OSS.AccessKeySecret = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("api url is required")
	}
	if c.Export.OutputDirectory == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.Export.Format != "csv" && c.Export.Format != "xlsx" {
		return fmt.Errorf("unsupported export format: %q", c.Export.Format)
	}
	if len(c.Export.Fields) == 0 {
		return fmt.Errorf("at least one export field is required")
	}

	seen := make(map[string]bool, len(c.Export.Fields))
	primaryKeys := 0
	for i, f := range c.Export.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %d name is required", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		seen[f.Name] = true
		if f.PrimaryKey {
			primaryKeys++
		}
	}
	if primaryKeys != 1 {
		return fmt.Errorf("exactly one field must be flagged as primary key, got %d", primaryKeys)
	}

	if c.Fetch.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.Fetch.MaxConsecutiveSkips < 0 {
		return fmt.Errorf("max consecutive skips cannot be negative")
	}
	if c.Debug.Limit < 0 {
		return fmt.Errorf("debug limit cannot be negative")
	}
	if c.Warnings.SingletonThreshold < 1 {
		return fmt.Errorf("singleton threshold must be at least 1")
	}
	return nil
}

// PrimaryKey returns the name of the primary-key field
func (c *Config) PrimaryKey() string {
	for _, f := range c.Export.Fields {
		if f.PrimaryKey {
			return f.Name
		}
	}
	return ""
}

// FieldNames returns the configured field names in export order
func (c *Config) FieldNames() []string {
	names := make([]string, len(c.Export.Fields))
	for i, f := range c.Export.Fields {
		names[i] = f.Name
	}
	return names
}
