package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Addr string `env:"GRAPHBERRY_TEST_ADDR" envDefault:"localhost:9999"`
	Max  int    `env:"GRAPHBERRY_TEST_MAX"  envDefault:"5"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != "localhost:9999" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.Max != 5 {
		t.Fatalf("expected default max 5, got %d", cfg.Max)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("GRAPHBERRY_TEST_ADDR", "0.0.0.0:8080")
	t.Setenv("GRAPHBERRY_TEST_MAX", "9")

	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != "0.0.0.0:8080" {
		t.Fatalf("expected env addr, got %q", cfg.Addr)
	}
	if cfg.Max != 9 {
		t.Fatalf("expected env max 9, got %d", cfg.Max)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("GRAPHBERRY_TEST_MAX", "not-an-int")

	var cfg envTestConfig
	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
