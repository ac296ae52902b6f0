package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/atinyakov/GophShelf/internal/client/api"
	"github.com/atinyakov/GophShelf/internal/client/collection"
	"github.com/atinyakov/GophShelf/internal/client/credstore"
	"github.com/atinyakov/GophShelf/internal/client/session"
	"github.com/atinyakov/GophShelf/internal/client/shell"
	"github.com/atinyakov/GophShelf/internal/config"
	"github.com/atinyakov/GophShelf/internal/db"
	"github.com/atinyakov/GophShelf/internal/repository"
)

// run wires the client together and runs the shell until it exits.
func run(ctx context.Context, cfg config.Client, in io.Reader, out io.Writer, log *zap.Logger) error {
	backend, closeBackend, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	httpClient, err := api.NewHTTPClient(cfg.CAFile, cfg.HTTPTimeout)
	if err != nil {
		return err
	}
	opts := []api.Option{api.WithHTTPClient(httpClient), api.WithLogger(log)}

	store := credstore.New(backend, log)
	sess := session.New(ctx, store, api.NewAuthClient(cfg.BaseURL, opts...), log)
	categories := api.NewCategoryClient(cfg.BaseURL, cfg.AssetURL, sess, opts...)
	col := collection.New(categories, log)

	if fb, ok := backend.(*credstore.FileBackend); ok && cfg.Watch {
		err := credstore.Watch(ctx, fb.Path(), func() { sess.Reload(ctx) }, log)
		if err != nil {
			return err
		}
	}

	return shell.New(in, out, sess, col, categories, log).Run(ctx)
}

// openBackend returns the credential backend selected by cfg.Store and a
// function releasing it.
func openBackend(cfg config.Client) (credstore.Backend, func(), error) {
	switch cfg.Store {
	case config.StoreSQLite, config.StorePostgres:
		if cfg.Store == config.StoreSQLite {
			if err := os.MkdirAll(filepath.Dir(cfg.DatabaseDSN), 0o700); err != nil {
				return nil, nil, fmt.Errorf("create state dir: %w", err)
			}
		}
		conn, err := db.Open(cfg.Store, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open credential database: %w", err)
		}
		return repository.NewSQLCredentialRepository(conn, cfg.Store), func() { _ = conn.Close() }, nil
	default:
		return credstore.NewFileBackend(cfg.StateDir), func() {}, nil
	}
}
