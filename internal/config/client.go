// Package config holds the options of the client and of the development
// server. Client options are layered: defaults, then the TOML config file,
// then GOPHSHELF_* environment variables, then explicitly set flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBaseURL is the API root of a locally running server.
const DefaultBaseURL = "http://localhost:5000/api"

// Credential store backends.
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Client holds the client options.
type Client struct {
	// BaseURL is the API root, e.g. http://localhost:5000/api.
	BaseURL string
	// AssetURL is where hosted images live. Derived from BaseURL when empty.
	AssetURL string
	// CAFile is an extra CA certificate to trust (dev certificates).
	CAFile string

	Store       string
	StateDir    string
	DatabaseDSN string

	LogLevel string
	// HTTPTimeout caps each request; zero leaves it to the transport.
	HTTPTimeout time.Duration
	// Watch follows credential file changes made by other client processes.
	Watch bool
}

// DefaultClient returns a Client with default values.
func DefaultClient() Client {
	return Client{
		BaseURL:  DefaultBaseURL,
		Store:    StoreFile,
		LogLevel: "warn",
	}
}

// Validate checks the options and fills in derived defaults.
func (c *Client) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return fmt.Errorf("url is required")
	}
	if c.AssetURL == "" {
		c.AssetURL = strings.TrimSuffix(c.BaseURL, "/api")
	}
	c.AssetURL = strings.TrimRight(c.AssetURL, "/")

	if c.HTTPTimeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	if c.StateDir == "" {
		c.StateDir = DefaultStateDir()
		if c.StateDir == "" {
			return fmt.Errorf("state-dir is required (no home directory)")
		}
	}

	switch c.Store {
	case StoreFile:
	case StoreSQLite:
		if c.DatabaseDSN == "" {
			c.DatabaseDSN = filepath.Join(c.StateDir, "credentials.db")
		}
	case StorePostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store %q (want file, sqlite or postgres)", c.Store)
	}

	if c.Watch && c.Store != StoreFile {
		return fmt.Errorf("watch is only supported with the file store")
	}
	return nil
}

// DefaultStateDir returns ~/.gophshelf, or "" without a home directory.
func DefaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".gophshelf")
	}
	return ""
}

// configSetter applies values unless the matching flag was set explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}
