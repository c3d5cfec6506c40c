package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	auth "github.com/v-hunt/trunity-importer/internal/auth/middleware"
	"github.com/v-hunt/trunity-importer/internal/formats"
	"github.com/v-hunt/trunity-importer/internal/storage"
)

type Deps struct {
	Auth        *auth.AuthService
	Runs        RunStore
	Env         formats.Env
	Media       storage.BlobStore // nil when media goes to Trunity
	CORSOrigins []string
	Timeout     time.Duration
}

func NewRouter(d Deps) http.Handler {
	if d.Timeout <= 0 {
		d.Timeout = 10 * time.Minute
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(d.Timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(d.Auth))

	// media links end up inside uploaded questions, so they stay public
	if d.Media != nil {
		r.Route("/media", func(mr chi.Router) {
			MountMedia(mr, d.Media)
		})
	}

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))
		pr.Post("/imports", ImportHandler(d.Runs, d.Env))
		pr.Get("/imports", ListRunsHandler(d.Runs))
		pr.Get("/imports/{id}", GetRunHandler(d.Runs))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	return r
}
