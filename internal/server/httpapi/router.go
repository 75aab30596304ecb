package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter assembles the public API. Everything under /api except auth
// requires a valid Bearer token.
func NewRouter(srv *Server, signKey []byte, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", srv.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", srv.handleRegister)
			r.Post("/login", srv.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(signKey))

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", srv.handleMe)
				r.Put("/name", srv.handleUpdateName)
				r.Put("/password", srv.handleUpdatePassword)
				r.Put("/public-key", srv.handleUpdatePublicKey)
				r.Get("/search", srv.handleSearchByEmail)
			})

			r.Route("/files", func(r chi.Router) {
				r.Post("/upload", srv.handleUpload)
				r.Post("/retrieve", srv.handleRetrieve)
				r.Post("/revoke", srv.handleRevoke)
				r.Get("/sent", srv.handleListSent)
				r.Get("/received", srv.handleListReceived)
			})
		})
	})

	return r
}
