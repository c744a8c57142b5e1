// Package config loads the application configuration from a YAML file,
// layered over built-in defaults. Flag overrides are applied by the caller
// after Load.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// DefaultPath is consulted when Load is called with an empty path.
const DefaultPath = "quickapi.yaml"

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// StorageConfig selects and configures the persistence backend.
// Only the fields for the selected backend need to be set.
type StorageConfig struct {
	Backend string   `yaml:"backend"` // disk, bolt, postgres, mysql, s3
	Dir     string   `yaml:"dir"`     // disk: root directory for bucket files
	Path    string   `yaml:"path"`    // bolt: database file path
	DSN     string   `yaml:"dsn"`     // postgres / mysql connection string
	S3      S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns a Config suitable for local development:
// disk storage under ./data, JSON logs at info level.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Listen: ":8080",
		},
		Storage: StorageConfig{
			Backend: "disk",
			Dir:     "data",
			Path:    "data/quickapi.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML config file and returns the parsed Config layered
// over Defaults. If path is empty, DefaultPath is tried; a missing
// default file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = DefaultPath
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration and reports every problem found,
// each prefixed with the offending field path.
func (c *Config) Validate() error {
	var problems []string

	if err := validateListenAddr(c.Server.Listen); err != nil {
		problems = append(problems, fmt.Sprintf("server.listen: %v", err))
	}

	switch c.Storage.Backend {
	case "", "disk", "bolt":
	case "postgres", "mysql":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			problems = append(problems, fmt.Sprintf("storage.dsn: required for backend %q", c.Storage.Backend))
		}
	case "s3":
		if strings.TrimSpace(c.Storage.S3.Endpoint) == "" {
			problems = append(problems, "storage.s3.endpoint: required for backend \"s3\"")
		}
		if strings.TrimSpace(c.Storage.S3.Bucket) == "" {
			problems = append(problems, "storage.s3.bucket: required for backend \"s3\"")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.backend: unknown backend %q", c.Storage.Backend))
	}

	if err := validateLogLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level: %v", err))
	}
	if err := validateLogFormat(c.Log.Format); err != nil {
		problems = append(problems, fmt.Sprintf("log.format: %v", err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// validateListenAddr accepts host:port with a non-empty port; the host may
// be empty (wildcard bind).
func validateListenAddr(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("must not be empty")
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if port == "" {
		return fmt.Errorf("invalid address %q: missing port", addr)
	}
	return nil
}

func validateLogLevel(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("unknown level %q", level)
}

func validateLogFormat(format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json", "console":
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}
