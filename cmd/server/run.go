package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	nethttp "net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atinyakov/GophShelf/internal/config"
	"github.com/atinyakov/GophShelf/internal/repository"
	"github.com/atinyakov/GophShelf/internal/server/handler/http"
	"github.com/atinyakov/GophShelf/internal/service"
)

const shutdownTimeout = 5 * time.Second

// newHandler builds the in-memory repositories, services and router.
func newHandler(cfg config.Server, log *zap.Logger) nethttp.Handler {
	authService := service.NewAuthService(repository.NewMemoryUserRepository(), []byte(cfg.TokenSecret), cfg.TokenTTL)
	categoryService := service.NewCategoryService(
		repository.NewMemoryCategoryRepository(),
		repository.NewMemoryImageStore(),
		cfg.MaxImageBytes,
	)

	return http.NewRouter(
		&http.AuthHandler{AuthService: authService},
		&http.CategoryHandler{CategoryService: categoryService},
		log,
	)
}

// run serves until ctx is done, then shuts down gracefully. ready, when not
// nil, receives the bound address once the listener is open.
func run(ctx context.Context, cfg config.Server, log *zap.Logger, ready chan<- string) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}

	server := &nethttp.Server{
		Handler:           newHandler(cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", zap.String("addr", ln.Addr().String()), zap.Bool("tls", cfg.TLS()))
		var err error
		if cfg.TLS() {
			err = server.ServeTLS(ln, cfg.CertFile, cfg.KeyFile)
		} else {
			err = server.Serve(ln)
		}
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if ready != nil {
		ready <- ln.Addr().String()
	}
	return g.Wait()
}
