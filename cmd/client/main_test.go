package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/GophShelf/internal/config"
	"github.com/atinyakov/GophShelf/internal/server/servertest"
)

func testConfig(t *testing.T, srv *servertest.Server, store string) config.Client {
	t.Helper()
	cfg := config.DefaultClient()
	cfg.BaseURL = srv.APIURL()
	cfg.Store = store
	cfg.StateDir = t.TempDir()
	cfg.HTTPTimeout = 5 * time.Second
	require.NoError(t, cfg.Validate())
	return cfg
}

func runScript(t *testing.T, cfg config.Client, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, run(context.Background(), cfg, in, &out, zap.NewNop()))
	return out.String()
}

func TestRun_SessionSurvivesRestart(t *testing.T) {
	for _, store := range []string{config.StoreFile, config.StoreSQLite} {
		t.Run(store, func(t *testing.T) {
			srv := servertest.Start(t, servertest.Options{})
			cfg := testConfig(t, srv, store)

			out := runScript(t, cfg,
				"signup", "Ada", "ada@example.com", "secret1",
				"new", "Books", "3", "",
				"exit",
			)
			assert.Contains(t, out, "Welcome, Ada!")
			assert.Contains(t, out, "Category created")

			// a second process picks the stored session up without logging in
			out = runScript(t, cfg, "list", "exit")
			assert.Contains(t, out, "Welcome, Ada!")
			assert.Contains(t, out, "Books")
			assert.NotContains(t, out, "Email:")
		})
	}
}

func TestRun_LogoutForgetsSession(t *testing.T) {
	srv := servertest.Start(t, servertest.Options{})
	cfg := testConfig(t, srv, config.StoreFile)

	runScript(t, cfg, "signup", "Ada", "ada@example.com", "secret1", "logout", "exit")

	out := runScript(t, cfg, "list", "exit")
	assert.Contains(t, out, "Please log in first.")
	assert.Contains(t, out, "gophshelf:/login> ")
}

func TestRun_ExpiredStoredTokenLandsOnLogin(t *testing.T) {
	srv := servertest.Start(t, servertest.Options{TokenTTL: time.Second})
	cfg := testConfig(t, srv, config.StoreSQLite)

	runScript(t, cfg, "signup", "Ada", "ada@example.com", "secret1", "exit")
	time.Sleep(1100 * time.Millisecond)

	out := runScript(t, cfg, "exit")
	assert.Contains(t, out, "Your session has expired. Please log in again.")
	assert.Contains(t, out, "gophshelf:/login> ")
}

func TestRun_BadCAFile(t *testing.T) {
	srv := servertest.Start(t, servertest.Options{})
	cfg := testConfig(t, srv, config.StoreFile)
	cfg.CAFile = filepath.Join(t.TempDir(), "missing.crt")

	err := run(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{}, zap.NewNop())
	assert.Error(t, err)
}

func TestRootCmd_Version(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "client version")
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--store", "postgres"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn is required")
}
