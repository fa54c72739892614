package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"fotnik/internal/http/handlers"
	"fotnik/internal/middleware"
	"fotnik/internal/ws"
)

// Options carries everything the router wires together.
type Options struct {
	App         *handlers.App
	WS          *ws.Handler
	Verifier    middleware.TokenVerifier
	Logger      zerolog.Logger
	CORSOrigins []string
	// RateLimit caps authenticated requests per client IP per minute when
	// positive.
	RateLimit int
	// StaticDir, when set, serves mirrored assets from the local file store
	// under /static. Used by development deployments without object storage.
	StaticDir string
}

// NewRouter builds the HTTP surface: health, the persistent connection
// endpoint and the authenticated CRUD routes.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", opts.App.Health)

	if opts.StaticDir != "" {
		files := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Get("/static/*", files.ServeHTTP)
	}

	// Clients authenticate per message on the socket, not at upgrade time.
	r.Get("/ws/{client_id}", opts.WS.Serve)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(opts.Verifier))
		if opts.RateLimit > 0 {
			r.Use(middleware.RateLimit(opts.RateLimit, time.Minute))
		}

		r.Route("/products", func(r chi.Router) {
			r.Post("/", opts.App.ProductsCreate)
			r.Get("/", opts.App.ProductsList)
			r.Get("/{id}/photos", opts.App.ProductPhotos)
		})
		r.Get("/me/tokens", opts.App.TokensGet)
		r.Route("/photos", func(r chi.Router) {
			r.Get("/{id}", opts.App.PhotoGet)
			r.Put("/{id}/rating", opts.App.PhotoUpdateRating)
			r.Put("/{id}/caption", opts.App.PhotoUpdateCaption)
		})
	})

	return r
}
