// Package config holds the client configuration and its TOML file format.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/1ureka/alclient/internal/api"
	"github.com/1ureka/alclient/internal/session"
)

// DefaultPath is the configuration file read when --config is not given.
const DefaultPath = "alclient.toml"

// Character selects one character to play and, optionally, the server key
// it connects to. An empty Server means the character's home server.
type Character struct {
	Name   string
	Server string
}

// Config stores every parameter gathered from the config file and flags.
type Config struct {
	APIURL       string
	Email        string
	Password     string
	ReadTimeout  time.Duration // 0 disables the idle timeout
	WriteTimeout time.Duration
	InboxSize    int
	MetricsAddr  string // empty disables the /metrics listener
	Stats        bool
	Characters   []Character
}

type fileConfig struct {
	APIURL       string          `toml:"api_url"`
	Email        string          `toml:"email"`
	Password     string          `toml:"password"`
	ReadTimeout  string          `toml:"read_timeout"`
	WriteTimeout string          `toml:"write_timeout"`
	InboxSize    int             `toml:"inbox_size"`
	MetricsAddr  string          `toml:"metrics_addr"`
	Stats        bool            `toml:"stats"`
	Characters   []fileCharacter `toml:"characters"`
}

type fileCharacter struct {
	Name   string `toml:"name"`
	Server string `toml:"server"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	sc := session.DefaultConfig()
	return Config{
		APIURL:       api.DefaultURL,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		InboxSize:    sc.InboxSize,
		Stats:        true,
	}
}

// Load reads path over the defaults and validates the result. A missing file
// at DefaultPath is not an error; the defaults are returned as is.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == DefaultPath {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	if meta.IsDefined("api_url") {
		cfg.APIURL = strings.TrimSpace(raw.APIURL)
	}
	if meta.IsDefined("email") {
		cfg.Email = strings.TrimSpace(raw.Email)
	}
	if meta.IsDefined("password") {
		cfg.Password = raw.Password
	}
	if meta.IsDefined("read_timeout") {
		d, err := parseDuration(raw.ReadTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}
	if meta.IsDefined("write_timeout") {
		d, err := parseDuration(raw.WriteTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse write_timeout: %w", err)
		}
		cfg.WriteTimeout = d
	}
	if meta.IsDefined("inbox_size") {
		cfg.InboxSize = raw.InboxSize
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("stats") {
		cfg.Stats = raw.Stats
	}
	for _, c := range raw.Characters {
		cfg.Characters = append(cfg.Characters, Character{
			Name:   strings.TrimSpace(c.Name),
			Server: strings.TrimSpace(c.Server),
		})
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// parseDuration accepts Go duration strings; a bare "0" disables a timeout.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return errors.New("api_url is required")
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("read_timeout must not be negative (got %s)", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("write_timeout must not be negative (got %s)", c.WriteTimeout)
	}
	if c.InboxSize <= 0 {
		return fmt.Errorf("inbox_size must be positive (got %d)", c.InboxSize)
	}

	seen := make(map[string]struct{}, len(c.Characters))
	for i, ch := range c.Characters {
		if ch.Name == "" {
			return fmt.Errorf("characters[%d]: name is required", i)
		}
		if _, dup := seen[ch.Name]; dup {
			return fmt.Errorf("characters[%d]: duplicate name %q", i, ch.Name)
		}
		seen[ch.Name] = struct{}{}
	}
	return nil
}

// Session returns the per-session transport limits.
func (c Config) Session() session.Config {
	return session.Config{
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		InboxSize:    c.InboxSize,
	}
}
