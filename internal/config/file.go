package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig is the TOML form of Client. Durations are strings.
type FileConfig struct {
	BaseURL     string `toml:"url"`
	AssetURL    string `toml:"asset_url"`
	CAFile      string `toml:"ca_file"`
	Store       string `toml:"store"`
	StateDir    string `toml:"state_dir"`
	DatabaseDSN string `toml:"dsn"`
	LogLevel    string `toml:"log_level"`
	HTTPTimeout string `toml:"timeout"`
	Watch       *bool  `toml:"watch"`
}

// LoadFile reads and parses a TOML config file.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.gophshelf/config.toml, or "" without a home
// directory.
func DefaultConfigPath() string {
	if d := DefaultStateDir(); d != "" {
		return filepath.Join(d, "config.toml")
	}
	return ""
}

// ApplyFile copies the file values that are set, leaving alone the options
// whose flag is in changed.
func ApplyFile(cfg *Client, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("url", fc.BaseURL, &cfg.BaseURL)
	s.setString("asset-url", fc.AssetURL, &cfg.AssetURL)
	s.setString("ca", fc.CAFile, &cfg.CAFile)
	s.setString("store", fc.Store, &cfg.Store)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("dsn", fc.DatabaseDSN, &cfg.DatabaseDSN)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	s.setBool("watch", fc.Watch, &cfg.Watch)
	return nil
}

// FileExists reports whether a file exists at p.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
