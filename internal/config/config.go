// Package config loads franz.yaml, the per-project compiler configuration.
// Environment variables override file settings so CI can retarget builds
// without editing the project.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level franz.yaml configuration.
type Config struct {
	// Target is the LLVM target triple the module is annotated with.
	// Empty means the host default is left to the downstream toolchain.
	Target string `yaml:"target,omitempty"`

	// Output is the path the rendered IR is written to. Defaults to the
	// source file name with an .ll extension.
	Output string `yaml:"output,omitempty"`

	// Emit selects the output flavor: "ir" (textual LLVM IR) or "ast"
	// (parse tree dump, for debugging). Defaults to "ir".
	Emit string `yaml:"emit,omitempty"`

	// Cache controls the build cache.
	Cache CacheConfig `yaml:"cache,omitempty"`
}

// CacheConfig controls the sqlite build cache.
type CacheConfig struct {
	// Enabled turns caching of compiled modules on. Defaults to true.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Dir is the cache directory. Defaults to .franz-cache next to the
	// config file, or the working directory when no config file exists.
	Dir string `yaml:"dir,omitempty"`
}

// CacheEnabled resolves the tri-state Enabled flag.
func (c *Config) CacheEnabled() bool {
	if c.Cache.Enabled == nil {
		return true
	}
	return *c.Cache.Enabled
}

// LoadConfig reads and parses a franz.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses franz.yaml content from bytes. The path argument is
// used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.setDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no franz.yaml exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.setDefaults()
	return cfg
}

// FindConfig searches for franz.yaml starting from dir and walking up to
// parent directories. Returns the path if found, or empty string and nil
// error if not found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range []string{"franz.yaml", "franz.yml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) validate(path string) error {
	switch c.Emit {
	case "", "ir", "ast":
	default:
		return fmt.Errorf("%s: invalid emit %q (want \"ir\" or \"ast\")", path, c.Emit)
	}
	return nil
}

// applyEnv layers FRANZ_* environment overrides on top of file settings.
// The env package caches the process environment on first read; the cache is
// refreshed here so variables set after startup are honored.
func (c *Config) applyEnv() {
	env.Load()
	if v := env.Str("FRANZ_TARGET"); v != "" {
		c.Target = v
	}
	if v := env.Str("FRANZ_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := env.Str("FRANZ_EMIT"); v != "" {
		c.Emit = v
	}
	if v := env.Str("FRANZ_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if env.Has("FRANZ_NO_CACHE") {
		disabled := false
		c.Cache.Enabled = &disabled
	}
}

func (c *Config) setDefaults() {
	if c.Emit == "" {
		c.Emit = "ir"
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = ".franz-cache"
	}
}
