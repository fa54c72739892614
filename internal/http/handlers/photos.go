package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fotnik/internal/domain"
)

type photoResponse struct {
	ID                    string    `json:"id"`
	ProductID             string    `json:"product_id"`
	ImageURL              string    `json:"image_url"`
	SourceImageURL        string    `json:"source_image_url"`
	NoBgImageURL          string    `json:"no_bg_image_url"`
	BackgroundDescription string    `json:"background_description,omitempty"`
	PositivePrompt        string    `json:"positive_prompt,omitempty"`
	NegativePrompt        string    `json:"negative_prompt,omitempty"`
	UserRating            *int      `json:"user_rating,omitempty"`
	Caption               *string   `json:"caption,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

func toPhotoResponse(p domain.Photo) photoResponse {
	return photoResponse{
		ID:                    p.ID,
		ProductID:             p.ProductID,
		ImageURL:              p.ImageURL,
		SourceImageURL:        p.SourceImageURL,
		NoBgImageURL:          p.NoBgImageURL,
		BackgroundDescription: p.BackgroundDescription,
		PositivePrompt:        p.PositivePrompt,
		NegativePrompt:        p.NegativePrompt,
		UserRating:            p.UserRating,
		Caption:               p.Caption,
		CreatedAt:             p.CreatedAt,
	}
}

type photoRatingRequest struct {
	Rating int `json:"rating"`
}

type photoCaptionRequest struct {
	Caption string `json:"caption"`
}

// PhotoGet returns one generated photo record.
func (a *App) PhotoGet(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "id")
	photo, err := a.Photos.GetByID(r.Context(), photoID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "photo not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load photo")
		return
	}
	a.json(w, http.StatusOK, toPhotoResponse(*photo))
}

// PhotoUpdateRating stores a 1-5 user rating on a photo.
func (a *App) PhotoUpdateRating(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "id")
	var req photoRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		a.error(w, http.StatusBadRequest, "bad_request", "rating must be between 1 and 5")
		return
	}
	if err := a.Photos.UpdateRating(r.Context(), photoID, req.Rating); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "photo not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to update rating")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PhotoUpdateCaption stores a caption on a photo.
func (a *App) PhotoUpdateCaption(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "id")
	var req photoCaptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Caption == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "caption is required")
		return
	}
	if err := a.Photos.UpdateCaption(r.Context(), photoID, req.Caption); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "photo not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to update caption")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
