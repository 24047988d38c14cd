package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, read from the environment.
type Config struct {
	// Port the HTTP server listens on.
	Port string `env:"PP_PORT" envDefault:"8080"`
	// PublicURL is the externally reachable base URL of the frontend,
	// used to build shareable join links.
	PublicURL string `env:"PP_PUBLIC_URL" envDefault:"http://127.0.0.1:5173"`
	// CORSOrigins are the browser origins allowed to call the API.
	CORSOrigins []string `env:"PP_CORS_URLS" envSeparator:"," envDefault:"http://127.0.0.1,http://127.0.0.1:5173"`
	// DecksFile points at a JSON deck definition file; when empty the
	// compiled-in decks are used.
	DecksFile string `env:"PP_DECKS_FILE"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
