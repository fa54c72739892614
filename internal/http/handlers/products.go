package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fotnik/internal/domain"
)

type productCreateRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	TargetAudience string `json:"target_audience"`
}

type productResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	TargetAudience string    `json:"target_audience"`
	CreatedAt      time.Time `json:"created_at"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		TargetAudience: p.TargetAudience,
		CreatedAt:      p.CreatedAt,
	}
}

// ProductsCreate persists a product description and links it to the caller.
func (a *App) ProductsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req productCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Name == "" || req.Description == "" || req.TargetAudience == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "name, description and target_audience are required")
		return
	}

	product, err := a.Products.Create(r.Context(), &domain.Product{
		Name:           req.Name,
		Description:    req.Description,
		TargetAudience: req.TargetAudience,
	})
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to create product")
		return
	}
	if err := a.Products.LinkUser(r.Context(), userID, product.ID); err != nil {
		// Leave no orphaned product behind when the ownership link fails.
		if rollbackErr := a.Products.Unlink(r.Context(), product.ID); rollbackErr != nil {
			a.Logger.Error().Err(rollbackErr).Str("product_id", product.ID).Msg("handlers: failed to roll back product")
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to link product to user")
		return
	}
	a.json(w, http.StatusCreated, toProductResponse(*product))
}

// ProductsList returns the caller's products.
func (a *App) ProductsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	products, err := a.Products.ListByUser(r.Context(), userID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list products")
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	a.json(w, http.StatusOK, out)
}

// ProductPhotos returns the generated photos for one product.
func (a *App) ProductPhotos(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	productID := chi.URLParam(r, "id")
	if productID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "product id required")
		return
	}
	photos, err := a.Photos.ListByProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to list photos")
		return
	}
	out := make([]photoResponse, 0, len(photos))
	for _, p := range photos {
		out = append(out, toPhotoResponse(p))
	}
	a.json(w, http.StatusOK, out)
}
