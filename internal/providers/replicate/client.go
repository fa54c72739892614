package replicate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fotnik/internal/domain"
	"fotnik/internal/infra"
)

// Model versions invoked through the predictions API.
const (
	removeBgVersion  = "lucataco/remove-bg:95fcc2a26d3899cd6c2691c900465aaeff466285a65c14638cc5f36f34befaf1"
	adInpaintVersion = "logerzhu/ad-inpaint:b1c17d148455c1fda435ababe9ab1e03bc0d917cc3cf4251916f22c45c83c7df"
)

const defaultPollInterval = 2 * time.Second

// Options controls how the Replicate client is configured.
type Options struct {
	APIToken     string
	BaseURL      string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	PollInterval time.Duration
}

// Client invokes image models hosted on Replicate. Each operation is a single
// atomic unit of work: a prediction is created, polled to a terminal state
// and its output returned, or the call fails as an upstream model error.
type Client struct {
	apiToken     string
	baseURL      string
	httpClient   *http.Client
	logger       *infra.Logger
	pollInterval time.Duration
}

// NewClient validates the options and returns a Client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIToken) == "" {
		return nil, errors.New("replicate: api token is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Client{
		apiToken:     strings.TrimSpace(opts.APIToken),
		baseURL:      baseURL,
		httpClient:   client,
		logger:       opts.Logger,
		pollInterval: interval,
	}, nil
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

type createPredictionRequest struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
}

// RemoveBackground submits raw image bytes to the background-removal model
// and returns the URL of the processed image.
func (c *Client) RemoveBackground(ctx context.Context, image []byte) (string, error) {
	dataURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
	return c.removeBackground(ctx, dataURI)
}

// RemoveBackgroundURL is the variant taking an existing image location.
func (c *Client) RemoveBackgroundURL(ctx context.Context, imageURL string) (string, error) {
	return c.removeBackground(ctx, imageURL)
}

func (c *Client) removeBackground(ctx context.Context, image string) (string, error) {
	out, err := c.run(ctx, removeBgVersion, map[string]any{"image": image})
	if err != nil {
		return "", err
	}
	var url string
	if err := json.Unmarshal(out, &url); err != nil || url == "" {
		return "", fmt.Errorf("%w: remove-bg returned no output image", domain.ErrUpstreamModel)
	}
	return url, nil
}

// GenerateVariants asks the ad-inpaint model for count variants of the image
// and returns the output locations in model order. The model may return more
// items than requested; callers own any drop-first convention.
func (c *Client) GenerateVariants(ctx context.Context, prompt, negativePrompt, imageURL, productSize string, count int) ([]string, error) {
	out, err := c.run(ctx, adInpaintVersion, map[string]any{
		"prompt":          prompt,
		"negative_prompt": negativePrompt,
		"image_path":      imageURL,
		"image_num":       count,
		"product_size":    productSize,
	})
	if err != nil {
		return nil, err
	}
	var urls []string
	if err := json.Unmarshal(out, &urls); err != nil {
		return nil, fmt.Errorf("%w: ad-inpaint output is not a list of images", domain.ErrUpstreamModel)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: ad-inpaint returned no images", domain.ErrUpstreamModel)
	}
	return urls, nil
}

// run creates a prediction and polls it until it reaches a terminal state.
func (c *Client) run(ctx context.Context, version string, input map[string]any) (json.RawMessage, error) {
	pred, err := c.create(ctx, version, input)
	if err != nil {
		return nil, err
	}
	if c.logger != nil {
		c.logger.Debug().Str("prediction_id", pred.ID).Str("status", pred.Status).Msg("replicate: prediction created")
	}
	for !isTerminal(pred.Status) {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamModel, ctx.Err())
		case <-time.After(c.pollInterval):
		}
		pred, err = c.get(ctx, pred.ID)
		if err != nil {
			return nil, err
		}
	}
	if pred.Status != "succeeded" {
		return nil, fmt.Errorf("%w: prediction %s %s: %v", domain.ErrUpstreamModel, pred.ID, pred.Status, pred.Error)
	}
	if len(pred.Output) == 0 || string(pred.Output) == "null" {
		return nil, fmt.Errorf("%w: prediction %s succeeded without output", domain.ErrUpstreamModel, pred.ID)
	}
	return pred.Output, nil
}

func isTerminal(status string) bool {
	switch status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

func (c *Client) create(ctx context.Context, version string, input map[string]any) (*prediction, error) {
	body, err := json.Marshal(createPredictionRequest{Version: version, Input: input})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrUpstreamModel, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrUpstreamModel, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, id string) (*prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/predictions/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrUpstreamModel, err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*prediction, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamModel, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: replicate status %d", domain.ErrUpstreamModel, resp.StatusCode)
	}
	var pred prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrUpstreamModel, err)
	}
	return &pred, nil
}
