// Package config loads sboctl settings from yaml, toml or json files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Backend kinds.
const (
	BackendHeap  = "heap"
	BackendArena = "arena"
	BackendMmap  = "mmap"
)

// Config holds the sboctl parameters.
// Zero values mean "unspecified" and are replaced by Defaults.
type Config struct {
	Backend    string `json:"backend" yaml:"backend" toml:"backend"`
	ChunkSize  int    `json:"chunk_size" yaml:"chunk_size" toml:"chunk_size"`
	MaxBytes   int    `json:"max_bytes" yaml:"max_bytes" toml:"max_bytes"`
	Iterations int    `json:"iterations" yaml:"iterations" toml:"iterations"`
	LogLevel   string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() Config {
	return Config{
		Backend:    BackendArena,
		ChunkSize:  1 << 16,
		MaxBytes:   0,
		Iterations: 100000,
		LogLevel:   "info",
	}
}

// Load reads a configuration file based on its extension and fills unset
// fields from Defaults. Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fill(Defaults())
	return cfg, cfg.Validate()
}

func (c *Config) fill(d Config) {
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.Iterations == 0 {
		c.Iterations = d.Iterations
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendHeap, BackendArena, BackendMmap:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must not be negative")
	}
	if c.MaxBytes < 0 {
		return fmt.Errorf("max_bytes must not be negative")
	}
	if c.Backend == BackendMmap && c.MaxBytes == 0 {
		return fmt.Errorf("mmap backend needs max_bytes")
	}
	if c.Iterations < 0 {
		return fmt.Errorf("iterations must not be negative")
	}
	return nil
}
