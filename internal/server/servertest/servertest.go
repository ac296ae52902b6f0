// Package servertest runs the development server in-process for tests.
package servertest

import (
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/GophShelf/internal/repository"
	handler "github.com/atinyakov/GophShelf/internal/server/handler/http"
	"github.com/atinyakov/GophShelf/internal/service"
)

// Server is a running development server backed by memory.
type Server struct {
	*httptest.Server
	Auth       *service.Service
	Categories *service.CategoryService
}

// Options tweak the server.
type Options struct {
	TokenTTL      time.Duration
	MaxImageBytes int64
	Logger        *zap.Logger
}

// Start runs a server until the test ends.
func Start(tb testing.TB, opts Options) *Server {
	tb.Helper()
	if opts.TokenTTL == 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.MaxImageBytes == 0 {
		opts.MaxImageBytes = 5 << 20
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	auth := service.NewAuthService(repository.NewMemoryUserRepository(), []byte("servertest"), opts.TokenTTL)
	cats := service.NewCategoryService(repository.NewMemoryCategoryRepository(), repository.NewMemoryImageStore(), opts.MaxImageBytes)
	router := handler.NewRouter(
		&handler.AuthHandler{AuthService: auth},
		&handler.CategoryHandler{CategoryService: cats},
		opts.Logger,
	)

	srv := httptest.NewServer(router)
	tb.Cleanup(srv.Close)
	return &Server{Server: srv, Auth: auth, Categories: cats}
}

// APIURL is the API root, the client's base URL.
func (s *Server) APIURL() string {
	return s.URL + "/api"
}
