package server

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the HTTP server settings, read from the environment.
type Config struct {
	Addr         string        `env:"NAMEPROXY_HTTP_ADDR" envDefault:"127.0.0.1:8080"`
	CORSOrigins  []string      `env:"NAMEPROXY_CORS_ORIGINS" envSeparator:","`
	ReadTimeout  time.Duration `env:"NAMEPROXY_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"NAMEPROXY_WRITE_TIMEOUT" envDefault:"120s"`
	// MaxBodyBytes caps translate request bodies.
	MaxBodyBytes int64 `env:"NAMEPROXY_MAX_BODY_BYTES" envDefault:"1048576"`
}

// LoadConfig parses Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
