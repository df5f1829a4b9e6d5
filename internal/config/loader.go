package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "STANDINGS_"
	envFileVar = "STANDINGS_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if STANDINGS_CONFIG is set
//  3. env (prefix STANDINGS_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// STANDINGS_SOURCE_URL -> source_url; underscores are kept to match the flat koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals // validator caches struct metadata

// Validate checks field constraints and returns ErrInvalidConfig naming the
// offending keys.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}
