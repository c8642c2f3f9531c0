package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDatabase      = "../piikkilaite/db/sqlite-prod.db"
	DefaultOutDir        = "."
	DefaultFormat        = "json"
	DefaultIndent        = 2
	DefaultBusyTimeoutMS = 5000
)

// DefaultTables are exported when neither the config file nor the
// command line names any.
var DefaultTables = []string{"users", "prices"}

type Config struct {
	Database      string   `yaml:"database"`
	OutDir        string   `yaml:"out_dir"`
	Tables        []string `yaml:"tables"`
	Format        string   `yaml:"format"`
	Indent        int      `yaml:"indent"`
	BusyTimeoutMS int      `yaml:"busy_timeout_ms"`
	MetricsFile   string   `yaml:"metrics_file"`
}

func Default() *Config {
	return &Config{
		Database:      DefaultDatabase,
		OutDir:        DefaultOutDir,
		Tables:        append([]string(nil), DefaultTables...),
		Format:        DefaultFormat,
		Indent:        DefaultIndent,
		BusyTimeoutMS: DefaultBusyTimeoutMS,
	}
}

// Load reads a YAML file on top of the defaults. An empty path yields
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("invalid config: database path is empty")
	}
	if len(c.Tables) == 0 {
		return fmt.Errorf("invalid config: no tables to export")
	}
	seen := map[string]bool{}
	for _, name := range c.Tables {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("invalid config: empty table name")
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("invalid config: table %s listed twice", name)
		}
		seen[key] = true
	}
	if c.Indent < 0 {
		return fmt.Errorf("invalid config: indent must not be negative")
	}
	if c.BusyTimeoutMS < 0 {
		return fmt.Errorf("invalid config: busy_timeout_ms must not be negative")
	}
	return nil
}
