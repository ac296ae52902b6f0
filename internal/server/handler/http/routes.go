package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/GophShelf/internal/middleware"
)

// NewRouter constructs the HTTP handler of the development server.
//
// Routes:
//
//	POST   /api/auth/signup      → authHandler.Signup
//	POST   /api/auth/login       → authHandler.Login
//	GET    /api/auth/me          → authHandler.Me           (bearer)
//	GET    /api/categories       → categoryHandler.List     (bearer)
//	POST   /api/categories       → categoryHandler.Create   (bearer, multipart)
//	GET    /api/categories/{id}  → categoryHandler.Get      (bearer)
//	PUT    /api/categories/{id}  → categoryHandler.Update   (bearer, multipart)
//	DELETE /api/categories/{id}  → categoryHandler.Delete   (bearer)
//	GET    /uploads/{file}       → categoryHandler.Image
func NewRouter(
	authHandler *AuthHandler,
	categoryHandler *CategoryHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(chiMiddleware.AllowContentType("application/json")).Post("/signup", authHandler.Signup)
			r.With(chiMiddleware.AllowContentType("application/json")).Post("/login", authHandler.Login)
			r.With(middleware.BearerAuth(authHandler.AuthService)).Get("/me", authHandler.Me)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Use(middleware.BearerAuth(authHandler.AuthService))
			r.Use(chiMiddleware.AllowContentType("multipart/form-data"))

			r.Get("/", categoryHandler.List)
			r.Post("/", categoryHandler.Create)
			r.Get("/{id}", categoryHandler.Get)
			r.Put("/{id}", categoryHandler.Update)
			r.Delete("/{id}", categoryHandler.Delete)
		})
	})

	r.Get("/uploads/{file}", categoryHandler.Image)

	return r
}
