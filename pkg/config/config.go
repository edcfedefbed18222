// Package config loads the optional fastroot configuration file.
//
// The file is TOML and lives at $XDG_CONFIG_HOME/fastroot/config.toml by
// default. Every key is optional; command-line flags override file values.
//
//	method = "MV"
//	epsilon = 1e-5
//	max_iterations = 1000
//	alternatives = 1
//	solver = "auto"
//
//	[cache]
//	enabled = true
//	dir = ""
//	redis_addr = ""
//	ttl = "720h"
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// FileName is the base name of the configuration file.
const FileName = "config.toml"

// ErrUnknownKey is returned when the file contains keys fastroot does not know.
var ErrUnknownKey = errors.New("unknown configuration key")

// Config is the decoded configuration file.
type Config struct {
	Method        string  `toml:"method" validate:"omitempty,oneof=MV MP OG RTT mv mp og rtt"`
	Epsilon       float64 `toml:"epsilon" validate:"gte=0"`
	MaxIterations int     `toml:"max_iterations" validate:"gte=0"`
	Alternatives  int     `toml:"alternatives" validate:"gte=0"`
	Solver        string  `toml:"solver" validate:"omitempty,oneof=auto active-set quadprog as qp"`

	Cache CacheConfig `toml:"cache"`
}

// CacheConfig selects and tunes the result cache.
type CacheConfig struct {
	Enabled   bool     `toml:"enabled"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr" validate:"omitempty,hostname_port|url"`
	TTL       Duration `toml:"ttl" validate:"gte=0"`
}

// Duration is a time.Duration written as a Go duration string ("720h").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Duration) String() string { return time.Duration(d).String() }

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Method:        "MV",
		Epsilon:       1e-5,
		MaxIterations: 1000,
		Alternatives:  1,
		Solver:        "auto",
		Cache: CacheConfig{
			Enabled: true,
			TTL:     Duration(30 * 24 * time.Hour),
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/fastroot/config.toml, falling back to
// the platform's user configuration directory.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fastroot", FileName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "fastroot", FileName), nil
}

// Load reads the file at path. An empty path means [DefaultPath], and a
// missing default file yields [Default]; a missing explicit file is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses TOML on top of [Default] and validates the result.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slices.Sort(keys)
		return Config{}, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = newValidator()

// newValidator reports fields by their TOML key.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and reports every violation by its
// TOML key.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", tomlKey(fe.Namespace()), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// tomlKey drops the root struct name from a validator namespace such as
// "Config.cache.redis_addr".
func tomlKey(ns string) string {
	_, key, found := strings.Cut(ns, ".")
	if !found {
		return ns
	}
	return key
}

// RedisURL returns the redis address as a URL, adding the scheme to a bare
// host:port. It returns "" when no address is configured.
func (c CacheConfig) RedisURL() string {
	switch {
	case c.RedisAddr == "":
		return ""
	case strings.Contains(c.RedisAddr, "://"):
		return c.RedisAddr
	default:
		return "redis://" + c.RedisAddr
	}
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}
