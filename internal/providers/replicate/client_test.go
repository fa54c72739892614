package replicate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fotnik/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{
		APIToken:     "test-token",
		BaseURL:      srv.URL,
		PollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, srv
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("expected an error without an api token")
	}
}

func TestRemoveBackgroundCreateAndPoll(t *testing.T) {
	var polls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/predictions":
			var req createPredictionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode create request: %v", err)
			}
			if req.Version != removeBgVersion {
				t.Errorf("unexpected model version %q", req.Version)
			}
			image, _ := req.Input["image"].(string)
			if !strings.HasPrefix(image, "data:image/jpeg;base64,") {
				t.Errorf("image input %q is not a data uri", image)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "pred-1", "status": "starting"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/predictions/pred-1":
			if atomic.AddInt32(&polls, 1) < 2 {
				_ = json.NewEncoder(w).Encode(map[string]any{"id": "pred-1", "status": "processing"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "pred-1",
				"status": "succeeded",
				"output": "https://replicate.delivery/no-bg.png",
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	url, err := client.RemoveBackground(context.Background(), []byte("image-bytes"))
	if err != nil {
		t.Fatalf("RemoveBackground: %v", err)
	}
	if url != "https://replicate.delivery/no-bg.png" {
		t.Fatalf("unexpected output url %q", url)
	}
	if polls < 2 {
		t.Fatalf("expected at least 2 polls, got %d", polls)
	}
}

func TestRemoveBackgroundURLPassesLocationUntouched(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var req createPredictionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode create request: %v", err)
			}
			if got, _ := req.Input["image"].(string); got != "https://cdn.test/products/p1/source_x.jpg" {
				t.Errorf("image input %q, want the location passed through", got)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "pred-5",
			"status": "succeeded",
			"output": "https://replicate.delivery/no-bg.png",
		})
	}))

	url, err := client.RemoveBackgroundURL(context.Background(), "https://cdn.test/products/p1/source_x.jpg")
	if err != nil {
		t.Fatalf("RemoveBackgroundURL: %v", err)
	}
	if url != "https://replicate.delivery/no-bg.png" {
		t.Fatalf("unexpected output url %q", url)
	}
}

func TestRemoveBackgroundFailedPrediction(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "pred-1",
			"status": "failed",
			"error":  "NSFW content detected",
		})
	}))

	_, err := client.RemoveBackground(context.Background(), []byte("image-bytes"))
	if !errors.Is(err, domain.ErrUpstreamModel) {
		t.Fatalf("expected upstream model error, got %v", err)
	}
	if !strings.Contains(err.Error(), "NSFW") {
		t.Fatalf("error %q does not carry the model's failure reason", err)
	}
}

func TestGenerateVariants(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var req createPredictionRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Version != adInpaintVersion {
				t.Errorf("unexpected model version %q", req.Version)
			}
			if got, _ := req.Input["image_num"].(float64); int(got) != 4 {
				t.Errorf("expected image_num 4, got %v", req.Input["image_num"])
			}
			if got, _ := req.Input["prompt"].(string); got != "studio shot" {
				t.Errorf("unexpected prompt %q", got)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "pred-2",
			"status": "succeeded",
			"output": []string{"https://r.test/base.png", "https://r.test/v1.png"},
		})
	}))

	urls, err := client.GenerateVariants(context.Background(), "studio shot", "blurry", "https://r.test/in.png", "0.5 * width", 4)
	if err != nil {
		t.Fatalf("GenerateVariants: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("expected 2 output urls, got %d", len(urls))
	}
}

func TestGenerateVariantsEmptyOutput(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "pred-3",
			"status": "succeeded",
			"output": []string{},
		})
	}))

	_, err := client.GenerateVariants(context.Background(), "p", "n", "url", "0.5 * width", 4)
	if !errors.Is(err, domain.ErrUpstreamModel) {
		t.Fatalf("expected upstream model error, got %v", err)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "pred-4", "status": "processing"})
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := client.RemoveBackground(ctx, []byte("image-bytes"))
	if !errors.Is(err, domain.ErrUpstreamModel) {
		t.Fatalf("expected upstream model error on cancellation, got %v", err)
	}
}

func TestDoRejectsErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.RemoveBackground(context.Background(), []byte("image-bytes"))
	if !errors.Is(err, domain.ErrUpstreamModel) {
		t.Fatalf("expected upstream model error, got %v", err)
	}
}
