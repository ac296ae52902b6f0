package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// clientEnv holds the raw GOPHSHELF_* values. Pointers tell unset from empty.
type clientEnv struct {
	BaseURL     string         `env:"URL"`
	AssetURL    string         `env:"ASSET_URL"`
	CAFile      string         `env:"CA_FILE"`
	Store       string         `env:"STORE"`
	StateDir    string         `env:"STATE_DIR"`
	DatabaseDSN string         `env:"DSN"`
	LogLevel    string         `env:"LOG_LEVEL"`
	HTTPTimeout *time.Duration `env:"TIMEOUT"`
	Watch       *bool          `env:"WATCH"`
}

// EnvPrefix prefixes every client environment variable.
const EnvPrefix = "GOPHSHELF_"

// ApplyEnv applies GOPHSHELF_* variables, leaving alone the options whose
// flag is in changed. environ replaces the process environment when not nil.
func ApplyEnv(cfg *Client, changed map[string]bool, environ map[string]string) error {
	var raw clientEnv
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(&raw, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	s := newConfigSetter(changed)
	s.setString("url", raw.BaseURL, &cfg.BaseURL)
	s.setString("asset-url", raw.AssetURL, &cfg.AssetURL)
	s.setString("ca", raw.CAFile, &cfg.CAFile)
	s.setString("store", raw.Store, &cfg.Store)
	s.setString("state-dir", raw.StateDir, &cfg.StateDir)
	s.setString("dsn", raw.DatabaseDSN, &cfg.DatabaseDSN)
	s.setString("log-level", raw.LogLevel, &cfg.LogLevel)
	if raw.HTTPTimeout != nil && !changed["timeout"] {
		cfg.HTTPTimeout = *raw.HTTPTimeout
	}
	s.setBool("watch", raw.Watch, &cfg.Watch)
	return nil
}

// Server holds the development server options.
type Server struct {
	Addr          string        `env:"GOPHSHELF_SERVER_ADDR" envDefault:"localhost:5000"`
	TokenSecret   string        `env:"GOPHSHELF_TOKEN_SECRET"`
	TokenTTL      time.Duration `env:"GOPHSHELF_TOKEN_TTL" envDefault:"24h"`
	CertFile      string        `env:"GOPHSHELF_TLS_CERT"`
	KeyFile       string        `env:"GOPHSHELF_TLS_KEY"`
	MaxImageBytes int64         `env:"GOPHSHELF_MAX_IMAGE_BYTES" envDefault:"5242880"`
	LogLevel      string        `env:"GOPHSHELF_LOG_LEVEL" envDefault:"info"`
}

// ParseServer loads the server options from the environment. environ
// replaces the process environment when not nil.
func ParseServer(environ map[string]string) (Server, error) {
	var cfg Server
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the server options.
func (s *Server) Validate() error {
	if s.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if s.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	if s.MaxImageBytes <= 0 {
		return fmt.Errorf("max image bytes must be positive")
	}
	if (s.CertFile == "") != (s.KeyFile == "") {
		return fmt.Errorf("tls cert and key must be set together")
	}
	return nil
}

// TLS reports whether the server should serve HTTPS.
func (s *Server) TLS() bool {
	return s.CertFile != "" && s.KeyFile != ""
}
