package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/franz-lang/franzc/internal/config"
)

func TestParseConfig(t *testing.T) {
	data := []byte(`
target: x86_64-unknown-linux-gnu
output: out.ll
emit: ir
cache:
  enabled: false
  dir: /tmp/franz
`)
	cfg, err := config.ParseConfig(data, "franz.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Target != "x86_64-unknown-linux-gnu" {
		t.Errorf("wrong target: %q", cfg.Target)
	}
	if cfg.Output != "out.ll" {
		t.Errorf("wrong output: %q", cfg.Output)
	}
	if cfg.CacheEnabled() {
		t.Error("cache should be disabled")
	}
	if cfg.Cache.Dir != "/tmp/franz" {
		t.Errorf("wrong cache dir: %q", cfg.Cache.Dir)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := config.ParseConfig([]byte("{}"), "franz.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Emit != "ir" {
		t.Errorf("default emit should be ir, got %q", cfg.Emit)
	}
	if !cfg.CacheEnabled() {
		t.Error("cache should default to enabled")
	}
	if cfg.Cache.Dir != ".franz-cache" {
		t.Errorf("wrong default cache dir: %q", cfg.Cache.Dir)
	}
}

func TestInvalidEmit(t *testing.T) {
	if _, err := config.ParseConfig([]byte("emit: wasm"), "franz.yaml"); err == nil {
		t.Fatal("expected error for invalid emit")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FRANZ_TARGET", "aarch64-apple-darwin")
	t.Setenv("FRANZ_NO_CACHE", "1")

	cfg, err := config.ParseConfig([]byte("target: x86_64-unknown-linux-gnu"), "franz.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Target != "aarch64-apple-darwin" {
		t.Errorf("env override not applied, got %q", cfg.Target)
	}
	if cfg.CacheEnabled() {
		t.Error("FRANZ_NO_CACHE should disable the cache")
	}
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(root, "franz.yaml")
	if err := os.WriteFile(cfgPath, []byte("emit: ir\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	found, err := config.FindConfig(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != cfgPath {
		t.Errorf("expected %s, got %s", cfgPath, found)
	}
}

func TestFindConfigMissing(t *testing.T) {
	found, err := config.FindConfig(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != "" {
		t.Errorf("expected empty path, got %s", found)
	}
}
