package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDecode(t *testing.T) {
	in := `
method = "RTT"
epsilon = 1e-6
max_iterations = 2000
alternatives = 3
solver = "quadprog"

[cache]
enabled = false
redis_addr = "localhost:6379"
ttl = "24h"
`
	cfg, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Method != "RTT" || cfg.Epsilon != 1e-6 || cfg.MaxIterations != 2000 {
		t.Errorf("core fields = %+v", cfg)
	}
	if cfg.Alternatives != 3 || cfg.Solver != "quadprog" {
		t.Errorf("alternatives/solver = %d/%s", cfg.Alternatives, cfg.Solver)
	}
	if cfg.Cache.Enabled {
		t.Error("cache.enabled should be false")
	}
	if time.Duration(cfg.Cache.TTL) != 24*time.Hour {
		t.Errorf("cache.ttl = %v", time.Duration(cfg.Cache.TTL))
	}
	if got := cfg.Cache.RedisURL(); got != "redis://localhost:6379" {
		t.Errorf("RedisURL = %q", got)
	}
}

func TestDecodeKeepsDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`alternatives = 2`))
	if err != nil {
		t.Fatal(err)
	}
	def := Default()
	if cfg.Method != def.Method || cfg.Epsilon != def.Epsilon || !cfg.Cache.Enabled {
		t.Errorf("unset keys should keep defaults, got %+v", cfg)
	}
	if cfg.Alternatives != 2 {
		t.Errorf("alternatives = %d, want 2", cfg.Alternatives)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"syntax", `method = `, "parse config"},
		{"unknown key", "methd = \"MV\"\n", "methd"},
		{"bad method", `method = "NJ"`, "method"},
		{"negative epsilon", `epsilon = -1.0`, "epsilon"},
		{"negative alternatives", `alternatives = -2`, "alternatives"},
		{"bad solver", `solver = "simplex"`, "solver"},
		{"bad duration", "[cache]\nttl = \"forever\"\n", "parse config"},
		{"bad redis address", "[cache]\nredis_addr = \"not an address\"\n", "cache.redis_addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.in))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}

	_, err := Decode(strings.NewReader("[cache]\nbogus = 1\n"))
	if !errors.Is(err, ErrUnknownKey) {
		t.Errorf("unknown nested key: got %v, want ErrUnknownKey", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	// Missing default file yields defaults.
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load default: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load without file = %+v, want defaults", cfg)
	}

	// Missing explicit file is an error.
	if _, err := Load(filepath.Join(dir, "nope.toml")); err == nil {
		t.Error("missing explicit file should fail")
	}

	path, err := DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "fastroot", "config.toml") {
		t.Errorf("DefaultPath = %q", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`method = "MP"`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Method != "MP" {
		t.Errorf("method = %q, want MP", cfg.Method)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	want := Default()
	want.Method = "OG"
	want.Cache.Dir = "/tmp/fastroot"

	var buf bytes.Buffer
	if err := Encode(&buf, want); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `ttl = "720h0m0s"`) {
		t.Errorf("ttl should encode as a duration string:\n%s", buf.String())
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode(Encode(cfg)): %v", err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestRedisURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"", ""},
		{"cache:6379", "redis://cache:6379"},
		{"rediss://user:pw@cache:6380/2", "rediss://user:pw@cache:6380/2"},
	}
	for _, tt := range tests {
		if got := (CacheConfig{RedisAddr: tt.addr}).RedisURL(); got != tt.want {
			t.Errorf("RedisURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
