package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fotnik/internal/assets"
	"fotnik/internal/domain"
)

// Authenticator validates a token pair against the identity provider.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken, refreshToken string) (string, error)
}

// ModelGateway invokes the remote image models.
type ModelGateway interface {
	RemoveBackground(ctx context.Context, image []byte) (string, error)
	GenerateVariants(ctx context.Context, prompt, negativePrompt, imageURL, productSize string, count int) ([]string, error)
}

// PromptBuilder produces the structured prompt pair for the generative model.
type PromptBuilder interface {
	GenerateAdPrompt(ctx context.Context, imageURL, productDescription, targetAudience, backgroundDescription string) (*domain.AdPrompt, error)
}

// AssetMirror moves image bytes between scratch, remote URLs and durable
// storage. *assets.Mirror is the production implementation.
type AssetMirror interface {
	PersistLocal(data []byte, role assets.Role, productID string) (string, error)
	FetchRemote(ctx context.Context, url string, role assets.Role, productID string) (string, error)
	MirrorToDurable(ctx context.Context, localPath, key string) (string, error)
	CleanupLocal(paths ...string)
}

// ProgressSink receives the pipeline's progress events. The websocket
// registry provides sinks bound to a client; tests substitute their own.
type ProgressSink interface {
	Publish(event domain.ProgressEvent)
}

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the structured outcome of an ad-photo generation run. It is
// well-formed regardless of which stage failed.
type Result struct {
	Status         string   `json:"status"`
	Message        string   `json:"message"`
	SourceImageURL string   `json:"source_image_url,omitempty"`
	ImageURLs      []string `json:"image_urls,omitempty"`
	ProductID      string   `json:"product_id"`
}

// Request carries the validated fields of a generate_ad_photos message.
type Request struct {
	Image                 string
	ProductID             string
	BackgroundDescription string
	AccessToken           string
	RefreshToken          string
}

func (r Request) validate() error {
	var missing []string
	if strings.TrimSpace(r.Image) == "" {
		missing = append(missing, "image")
	}
	if strings.TrimSpace(r.ProductID) == "" {
		missing = append(missing, "product_id")
	}
	if strings.TrimSpace(r.AccessToken) == "" {
		missing = append(missing, "access_token")
	}
	if strings.TrimSpace(r.RefreshToken) == "" {
		missing = append(missing, "refresh_token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// Options wires the pipeline's collaborators.
type Options struct {
	Auth         Authenticator
	Gateway      ModelGateway
	Prompts      PromptBuilder
	Mirror       AssetMirror
	Products     domain.ProductRepository
	Photos       domain.PhotoRepository
	SourcePhotos domain.SourcePhotoRepository
	// Tokens is optional; when set, a run requires a positive token balance
	// and debits one unit on success.
	Tokens       domain.TokenRepository
	Logger       zerolog.Logger
	StageTimeout time.Duration
	VariantCount int
}

// Service orchestrates the ad-photo generation and source-photo ingestion
// workflows. It never lets an error escape to the caller: every run returns a
// structured success or error result.
type Service struct {
	auth         Authenticator
	gateway      ModelGateway
	prompts      PromptBuilder
	mirror       AssetMirror
	products     domain.ProductRepository
	photos       domain.PhotoRepository
	sourcePhotos domain.SourcePhotoRepository
	tokens       domain.TokenRepository
	logger       zerolog.Logger
	stageTimeout time.Duration
	variantCount int
}

const defaultVariantCount = 4

// NewService validates the wiring and returns a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Auth == nil || opts.Gateway == nil || opts.Prompts == nil || opts.Mirror == nil {
		return nil, errors.New("pipeline: auth, gateway, prompts and mirror are required")
	}
	if opts.Products == nil || opts.Photos == nil || opts.SourcePhotos == nil {
		return nil, errors.New("pipeline: repositories are required")
	}
	variantCount := opts.VariantCount
	if variantCount <= 0 {
		variantCount = defaultVariantCount
	}
	return &Service{
		auth:         opts.Auth,
		gateway:      opts.Gateway,
		prompts:      opts.Prompts,
		mirror:       opts.Mirror,
		products:     opts.Products,
		photos:       opts.Photos,
		sourcePhotos: opts.SourcePhotos,
		tokens:       opts.Tokens,
		logger:       opts.Logger,
		stageTimeout: opts.StageTimeout,
		variantCount: variantCount,
	}, nil
}

// stage bounds one external call. Timeouts surface as the call site's error
// class rather than aborting the whole run uncontrolled.
func (s *Service) stage(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.stageTimeout > 0 {
		return context.WithTimeout(ctx, s.stageTimeout)
	}
	return context.WithCancel(ctx)
}

// decodeImage accepts plain base64 or a data URI.
func decodeImage(image string) ([]byte, error) {
	if idx := strings.Index(image, ";base64,"); idx >= 0 && strings.HasPrefix(image, "data:") {
		image = image[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(image)
	if err != nil {
		return nil, fmt.Errorf("%w: image is not valid base64", domain.ErrValidation)
	}
	return data, nil
}
