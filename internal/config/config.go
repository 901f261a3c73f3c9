// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every variable name.
const Prefix = "SALES_"

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr        string        `env:"GRPC_ADDR" envDefault:":9090"`
	PGDSN           string        `env:"PG_DSN"`
	AuthSecret      string        `env:"AUTH_SECRET"`
	AuthIssuer      string        `env:"AUTH_ISSUER" envDefault:"sales-eval"`
	LogMode         string        `env:"LOG_MODE" envDefault:"prod"`
	RateBurst       int           `env:"RATE_BURST" envDefault:"50"`
	RatePerSec      float64       `env:"RATE_PER_SEC" envDefault:"25"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:","`
	StreamBuffer    int           `env:"STREAM_BUFFER" envDefault:"16"`
	Version         string        `env:"VERSION" envDefault:"dev"`
	Commit          string        `env:"COMMIT" envDefault:"unknown"`
}

// Load reads optional .env files (missing files are ignored) and parses the
// environment into a Config.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !isNotExist(err) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return Parse()
}

// Parse reads the environment without touching .env files.
func Parse() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that have no usable default.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.AuthSecret) == "" {
		errs = append(errs, errors.New(Prefix+"AUTH_SECRET is required"))
	}
	if c.RateBurst <= 0 || c.RatePerSec <= 0 {
		errs = append(errs, errors.New("rate limit must be positive"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New(Prefix+"MAX_BODY_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

// InMemory reports whether no database is configured.
func (c Config) InMemory() bool { return strings.TrimSpace(c.PGDSN) == "" }

func isNotExist(err error) bool { return errors.Is(err, fs.ErrNotExist) }
