package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"journal-service/internal/trips"
	"journal-service/internal/users"
	"journal-service/pkg/logger"
)

const serviceName = "TravelRecord backend running"

// Deps are the handlers and settings the router needs.
type Deps struct {
	Users       *users.Handler
	Trips       *trips.Handler
	CORSOrigins []string
	Log         *zap.Logger
}

// NewRouter builds the HTTP handler for the whole service.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logger.Middleware(d.Log))
	r.Use(chimw.Recoverer)

	r.Get("/", health)
	r.Get("/health", health)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Accept"},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		d.Users.Routes(r)
		d.Trips.Routes(r)
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "service": serviceName})
}
