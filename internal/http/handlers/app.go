package handlers

import (
	"encoding/json"
	"net/http"

	"fotnik/internal/domain"
	"fotnik/internal/infra"
	"fotnik/internal/middleware"
)

// App bundles the dependencies the REST handlers need.
type App struct {
	Products domain.ProductRepository
	Photos   domain.PhotoRepository
	Tokens   domain.TokenRepository
	Logger   infra.Logger
}

// NewApp builds the handler container.
func NewApp(products domain.ProductRepository, photos domain.PhotoRepository, tokens domain.TokenRepository, logger infra.Logger) *App {
	return &App{Products: products, Photos: photos, Tokens: tokens, Logger: logger}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"code": code, "message": message})
}
