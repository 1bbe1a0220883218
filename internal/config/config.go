// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/fivetwenty-io/tablestore/internal/constants"
	"github.com/fivetwenty-io/tablestore/pkg/tables"
)

// Env is the environment-provided configuration. Every variable is read
// with the TABLESTORE_ prefix, e.g. TABLESTORE_API_KEY.
type Env struct {
	EndpointURL       string        `env:"ENDPOINT_URL"        envDefault:"https://api.airtable.com"`
	APIKey            string        `env:"API_KEY"`
	APIVersion        string        `env:"API_VERSION"         envDefault:"v0"`
	BaseID            string        `env:"BASE_ID"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT"        envDefault:"30s"`
	RetryMax          int           `env:"RETRY_MAX"           envDefault:"5"`
	RetryWaitMin      time.Duration `env:"RETRY_WAIT_MIN"      envDefault:"1s"`
	RetryWaitMax      time.Duration `env:"RETRY_WAIT_MAX"      envDefault:"10s"`
	RequestsPerSecond int           `env:"REQUESTS_PER_SECOND"`
	Debug             bool          `env:"DEBUG"`
	UserAgent         string        `env:"USER_AGENT"`
}

// Options controls where configuration is read from.
type Options struct {
	// DotEnvFiles are loaded before parsing; missing files are ignored.
	// Variables already set in the process environment win.
	DotEnvFiles []string
	// Environment replaces the process environment when set.
	Environment map[string]string
}

// Load reads the configuration. It does not check required values; that is
// done by the constructors that need them.
func Load(opts Options) (*Env, error) {
	for _, file := range opts.DotEnvFiles {
		err := godotenv.Load(file)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", file, err)
		}
	}

	cfg := &Env{}

	err := env.ParseWithOptions(cfg, env.Options{
		Prefix:      constants.EnvPrefix,
		Environment: opts.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	return cfg, nil
}

// LoadDefault reads the process environment after loading ./.env if present.
func LoadDefault() (*Env, error) {
	return Load(Options{DotEnvFiles: []string{".env"}})
}

// ToConfig converts the environment into a client configuration.
func (e *Env) ToConfig() *tables.Config {
	return &tables.Config{
		EndpointURL:       e.EndpointURL,
		APIKey:            e.APIKey,
		APIVersion:        e.APIVersion,
		BaseID:            e.BaseID,
		HTTPTimeout:       e.HTTPTimeout,
		RetryMax:          e.RetryMax,
		RetryWaitMin:      e.RetryWaitMin,
		RetryWaitMax:      e.RetryWaitMax,
		RequestsPerSecond: e.RequestsPerSecond,
		Debug:             e.Debug,
		UserAgent:         e.UserAgent,
	}
}
