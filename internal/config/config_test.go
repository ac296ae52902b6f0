package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadAndApplyFile(t *testing.T) {
	p := writeFile(t, `
url = "https://shelf.example.com/api/"
store = "sqlite"
state_dir = "/tmp/shelf"
timeout = "3s"
watch = false
`)
	fc, err := LoadFile(p)
	require.NoError(t, err)

	cfg := DefaultClient()
	cfg.Watch = true
	require.NoError(t, ApplyFile(&cfg, fc, map[string]bool{"store": true}))

	assert.Equal(t, "https://shelf.example.com/api/", cfg.BaseURL)
	assert.Equal(t, StoreFile, cfg.Store, "explicit flag wins over the file")
	assert.Equal(t, "/tmp/shelf", cfg.StateDir)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.False(t, cfg.Watch)
	assert.Equal(t, "warn", cfg.LogLevel, "unset keys keep defaults")
}

func TestApplyFile_BadDuration(t *testing.T) {
	cfg := DefaultClient()
	err := ApplyFile(&cfg, FileConfig{HTTPTimeout: "soon"}, nil)
	assert.ErrorContains(t, err, "parse timeout")
}

func TestLoadFile_Invalid(t *testing.T) {
	_, err := LoadFile(writeFile(t, "url = "))
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultClient()
	cfg.BaseURL = "http://from-file/api"

	err := ApplyEnv(&cfg, map[string]bool{"log-level": true}, map[string]string{
		"GOPHSHELF_URL":       "http://from-env/api",
		"GOPHSHELF_TIMEOUT":   "2s",
		"GOPHSHELF_WATCH":     "true",
		"GOPHSHELF_LOG_LEVEL": "debug",
		"URL":                 "http://unprefixed/api",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://from-env/api", cfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.HTTPTimeout)
	assert.True(t, cfg.Watch)
	assert.Equal(t, "warn", cfg.LogLevel, "explicit flag wins over env")
}

func TestApplyEnv_UnsetLeavesValues(t *testing.T) {
	cfg := DefaultClient()
	cfg.Watch = true
	require.NoError(t, ApplyEnv(&cfg, nil, map[string]string{}))
	assert.Equal(t, DefaultClient().BaseURL, cfg.BaseURL)
	assert.Zero(t, cfg.HTTPTimeout)
	assert.True(t, cfg.Watch)
}

func TestApplyEnv_BadValue(t *testing.T) {
	cfg := DefaultClient()
	err := ApplyEnv(&cfg, nil, map[string]string{"GOPHSHELF_TIMEOUT": "later"})
	assert.ErrorContains(t, err, "parse env")
}

func TestClient_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Client)
		wantErr string
		check   func(t *testing.T, c Client)
	}{
		{
			name:   "defaults",
			mutate: func(c *Client) {},
			check: func(t *testing.T, c Client) {
				assert.Equal(t, "http://localhost:5000/api", c.BaseURL)
				assert.Equal(t, "http://localhost:5000", c.AssetURL)
			},
		},
		{
			name:   "trailing slash",
			mutate: func(c *Client) { c.BaseURL = "https://x.io/api/" },
			check: func(t *testing.T, c Client) {
				assert.Equal(t, "https://x.io/api", c.BaseURL)
				assert.Equal(t, "https://x.io", c.AssetURL)
			},
		},
		{
			name:   "explicit asset url",
			mutate: func(c *Client) { c.AssetURL = "https://cdn.x.io/" },
			check: func(t *testing.T, c Client) {
				assert.Equal(t, "https://cdn.x.io", c.AssetURL)
			},
		},
		{
			name:   "sqlite default dsn",
			mutate: func(c *Client) { c.Store = StoreSQLite },
			check: func(t *testing.T, c Client) {
				assert.Equal(t, filepath.Join(c.StateDir, "credentials.db"), c.DatabaseDSN)
			},
		},
		{name: "empty url", mutate: func(c *Client) { c.BaseURL = " " }, wantErr: "url is required"},
		{name: "bad store", mutate: func(c *Client) { c.Store = "redis" }, wantErr: "unknown store"},
		{name: "postgres without dsn", mutate: func(c *Client) { c.Store = StorePostgres }, wantErr: "dsn is required"},
		{
			name:   "zero timeout leaves the transport default",
			mutate: func(c *Client) { c.HTTPTimeout = 0 },
			check: func(t *testing.T, c Client) {
				assert.Zero(t, c.HTTPTimeout)
			},
		},
		{name: "negative timeout", mutate: func(c *Client) { c.HTTPTimeout = -time.Second }, wantErr: "timeout must not be negative"},
		{
			name:    "watch with sqlite",
			mutate:  func(c *Client) { c.Store = StoreSQLite; c.Watch = true },
			wantErr: "watch is only supported",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultClient()
			c.StateDir = t.TempDir()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestParseServer(t *testing.T) {
	cfg, err := ParseServer(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "localhost:5000", cfg.Addr)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.EqualValues(t, 5<<20, cfg.MaxImageBytes)
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.TLS())

	cfg, err = ParseServer(map[string]string{
		"GOPHSHELF_SERVER_ADDR": ":8443",
		"GOPHSHELF_TOKEN_TTL":   "1m",
		"GOPHSHELF_TLS_CERT":    "certs/server.crt",
		"GOPHSHELF_TLS_KEY":     "certs/server.key",
	})
	require.NoError(t, err)
	assert.Equal(t, ":8443", cfg.Addr)
	assert.Equal(t, time.Minute, cfg.TokenTTL)
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.TLS())
}

func TestServer_Validate(t *testing.T) {
	cfg, err := ParseServer(map[string]string{"GOPHSHELF_TLS_CERT": "a.crt"})
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "set together")

	_, err = ParseServer(map[string]string{"GOPHSHELF_TOKEN_TTL": "forever"})
	assert.Error(t, err)
}
