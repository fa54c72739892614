package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"fotnik/internal/domain"
	"fotnik/internal/middleware"
)

type stubVerifier struct{}

func (stubVerifier) GetUser(ctx context.Context, accessToken string) (string, error) {
	if accessToken != "valid" {
		return "", errors.New("invalid token")
	}
	return "user-1", nil
}

type stubProducts struct {
	created     []domain.Product
	linked      []string
	unlinked    []string
	listing     []domain.Product
	linkUserErr error
}

func (s *stubProducts) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	saved := *product
	saved.ID = "prod-1"
	s.created = append(s.created, saved)
	return &saved, nil
}

func (s *stubProducts) LinkUser(ctx context.Context, userID, productID string) error {
	if s.linkUserErr != nil {
		return s.linkUserErr
	}
	s.linked = append(s.linked, productID)
	return nil
}

func (s *stubProducts) Unlink(ctx context.Context, productID string) error {
	s.unlinked = append(s.unlinked, productID)
	return nil
}

func (s *stubProducts) ListByUser(ctx context.Context, userID string) ([]domain.Product, error) {
	return s.listing, nil
}

func (s *stubProducts) GetContext(ctx context.Context, productID string) (*domain.ProductContext, error) {
	return nil, domain.ErrNotFound
}

type stubPhotos struct {
	photos   map[string]domain.Photo
	ratings  map[string]int
	captions map[string]string
}

func newStubPhotos() *stubPhotos {
	return &stubPhotos{
		photos:   make(map[string]domain.Photo),
		ratings:  make(map[string]int),
		captions: make(map[string]string),
	}
}

func (s *stubPhotos) Insert(ctx context.Context, photo *domain.Photo) (*domain.Photo, error) {
	saved := *photo
	if saved.ID == "" {
		saved.ID = fmt.Sprintf("ph-%d", len(s.photos)+1)
	}
	s.photos[saved.ID] = saved
	return &saved, nil
}

func (s *stubPhotos) GetByID(ctx context.Context, id string) (*domain.Photo, error) {
	p, ok := s.photos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *stubPhotos) ListByProduct(ctx context.Context, productID string) ([]domain.Photo, error) {
	var out []domain.Photo
	for _, p := range s.photos {
		if p.ProductID == productID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPhotos) UpdateRating(ctx context.Context, id string, rating int) error {
	if _, ok := s.photos[id]; !ok {
		return domain.ErrNotFound
	}
	s.ratings[id] = rating
	return nil
}

func (s *stubPhotos) UpdateCaption(ctx context.Context, id string, caption string) error {
	if _, ok := s.photos[id]; !ok {
		return domain.ErrNotFound
	}
	s.captions[id] = caption
	return nil
}

type stubTokens struct {
	balance int
	err     error
}

func (s *stubTokens) Balance(ctx context.Context, userID string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.balance, nil
}

func (s *stubTokens) Debit(ctx context.Context, userID string, amount int) error { return nil }

func newTestRouter(products *stubProducts, photos *stubPhotos, tokens *stubTokens) http.Handler {
	app := NewApp(products, photos, tokens, zerolog.Nop())
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(stubVerifier{}))
		r.Post("/products", app.ProductsCreate)
		r.Get("/products", app.ProductsList)
		r.Get("/products/{id}/photos", app.ProductPhotos)
		r.Get("/me/tokens", app.TokensGet)
		r.Get("/photos/{id}", app.PhotoGet)
		r.Put("/photos/{id}/rating", app.PhotoUpdateRating)
		r.Put("/photos/{id}/caption", app.PhotoUpdateCaption)
	})
	return r
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer valid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestProductsCreate(t *testing.T) {
	products := &stubProducts{}
	handler := newTestRouter(products, newStubPhotos(), &stubTokens{})

	rec := doRequest(t, handler, http.MethodPost, "/products",
		`{"name":"Soap","description":"herbal soap","target_audience":"families"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp productResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "prod-1" {
		t.Fatalf("unexpected id %q", resp.ID)
	}
	if len(products.linked) != 1 || products.linked[0] != "prod-1" {
		t.Fatalf("expected the product to be linked to the user, got %v", products.linked)
	}
}

func TestProductsCreateRollsBackOnLinkFailure(t *testing.T) {
	products := &stubProducts{linkUserErr: errors.New("link failed")}
	handler := newTestRouter(products, newStubPhotos(), &stubTokens{})

	rec := doRequest(t, handler, http.MethodPost, "/products",
		`{"name":"Soap","description":"herbal soap","target_audience":"families"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(products.unlinked) != 1 || products.unlinked[0] != "prod-1" {
		t.Fatalf("expected the orphaned product to be removed, got %v", products.unlinked)
	}
}

func TestProductsCreateValidation(t *testing.T) {
	handler := newTestRouter(&stubProducts{}, newStubPhotos(), &stubTokens{})
	rec := doRequest(t, handler, http.MethodPost, "/products", `{"name":"Soap"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProductsRequireAuth(t *testing.T) {
	handler := newTestRouter(&stubProducts{}, newStubPhotos(), &stubTokens{})
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestPhotoGetRoundTrip(t *testing.T) {
	photos := newStubPhotos()
	stored, err := photos.Insert(context.Background(), &domain.Photo{
		ProductID:      "prod-1",
		ImageURL:       "https://cdn.test/products/prod-1/generated_x_0.jpg",
		SourceImageURL: "https://cdn.test/products/prod-1/source_x.jpg",
		NoBgImageURL:   "https://cdn.test/products/prod-1/no_bg_x.jpg",
		PositivePrompt: "studio shot of herbal soap",
		NegativePrompt: "blurry, low quality",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	handler := newTestRouter(&stubProducts{}, photos, &stubTokens{})

	rec := doRequest(t, handler, http.MethodGet, "/photos/"+stored.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp photoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ImageURL != stored.ImageURL {
		t.Fatalf("image_url %q, want %q", resp.ImageURL, stored.ImageURL)
	}
	if resp.SourceImageURL != stored.SourceImageURL {
		t.Fatalf("source_image_url %q, want %q", resp.SourceImageURL, stored.SourceImageURL)
	}
	if resp.NoBgImageURL != stored.NoBgImageURL {
		t.Fatalf("no_bg_image_url %q, want %q", resp.NoBgImageURL, stored.NoBgImageURL)
	}
	if resp.PositivePrompt != stored.PositivePrompt || resp.NegativePrompt != stored.NegativePrompt {
		t.Fatalf("prompts %q / %q do not survive the round trip", resp.PositivePrompt, resp.NegativePrompt)
	}

	rec = doRequest(t, handler, http.MethodGet, "/photos/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown photo: status = %d", rec.Code)
	}
}

func TestPhotoRating(t *testing.T) {
	photos := newStubPhotos()
	photos.photos["ph-1"] = domain.Photo{ID: "ph-1", ProductID: "prod-1"}
	handler := newTestRouter(&stubProducts{}, photos, &stubTokens{})

	rec := doRequest(t, handler, http.MethodPut, "/photos/ph-1/rating", `{"rating":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if photos.ratings["ph-1"] != 5 {
		t.Fatalf("rating not stored: %v", photos.ratings)
	}

	rec = doRequest(t, handler, http.MethodPut, "/photos/ph-1/rating", `{"rating":6}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range rating: status = %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodPut, "/photos/missing/rating", `{"rating":3}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown photo: status = %d", rec.Code)
	}
}

func TestPhotoCaption(t *testing.T) {
	photos := newStubPhotos()
	photos.photos["ph-1"] = domain.Photo{ID: "ph-1", ProductID: "prod-1"}
	handler := newTestRouter(&stubProducts{}, photos, &stubTokens{})

	rec := doRequest(t, handler, http.MethodPut, "/photos/ph-1/caption", `{"caption":"Fresh every morning"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if photos.captions["ph-1"] != "Fresh every morning" {
		t.Fatalf("caption not stored: %v", photos.captions)
	}
}

func TestTokensGet(t *testing.T) {
	handler := newTestRouter(&stubProducts{}, newStubPhotos(), &stubTokens{balance: 7})

	rec := doRequest(t, handler, http.MethodGet, "/me/tokens", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["token_balance"] != 7 {
		t.Fatalf("token_balance = %d, want 7", resp["token_balance"])
	}
}

func TestTokensGetNoAllocation(t *testing.T) {
	handler := newTestRouter(&stubProducts{}, newStubPhotos(), &stubTokens{err: domain.ErrNotFound})
	rec := doRequest(t, handler, http.MethodGet, "/me/tokens", "")
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}
}
