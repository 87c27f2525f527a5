package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/subosito/gotenv"
)

// Environment variables consulted before the layered load.
const (
	EnvPrefix     = "HOMEDASH_"
	EnvConfigFile = "HOMEDASH_CONFIG"
	EnvDotenvFile = "HOMEDASH_DOTENV"
	defaultDotenv = ".env"
)

// Load builds a Config by layering defaults, optional .env, optional file and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if HOMEDASH_CONFIG is set
//  3. env (prefix HOMEDASH_, "__" separates nested keys), after .env is applied
func Load(ctx context.Context) (*Config, error) {
	if err := loadDotenv(); err != nil {
		return nil, fmt.Errorf("%w: dotenv: %w", ErrLoadConfig, err)
	}

	base := New(ctx)
	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// HOMEDASH_TRANSIT__API_KEY -> transit.api_key
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if cfg.Calendar.IgnoreJSON != "" {
		var extra []IgnoreEntry
		if err := json.Unmarshal([]byte(cfg.Calendar.IgnoreJSON), &extra); err != nil {
			return nil, fmt.Errorf("%w: calendar.ignore_json: %w", ErrInvalidConfig, err)
		}
		cfg.Calendar.Ignore = append(cfg.Calendar.Ignore, extra...)
	}
	if len(cfg.Auth.Scopes) == 0 {
		cfg.Auth.Scopes = DefaultScopes()
	}
	if len(cfg.Transit.Boards) == 0 {
		cfg.Transit.Boards = DefaultBoards()
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field presence and ranges.
func Validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for i, entry := range cfg.Calendar.Ignore {
		if entry.ID == "" && entry.Name == "" {
			return fmt.Errorf("%w: calendar.ignore[%d] needs id or name", ErrInvalidConfig, i)
		}
	}
	return nil
}

// loadDotenv applies a .env file without overriding variables already set.
func loadDotenv() error {
	path := os.Getenv(EnvDotenvFile)
	if path == "" {
		if _, err := os.Stat(defaultDotenv); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = defaultDotenv
	}
	return gotenv.Load(path)
}
