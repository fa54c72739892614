package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fotnik/internal/domain"
)

// OpenAIOptions configures the ad-prompt builder.
type OpenAIOptions struct {
	APIKey       string
	VisionModel  string
	ExtractModel string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
}

// OpenAIBuilder produces the {positive_prompt, negative_prompt} pair for the
// ad-inpaint model. It is one logical operation made of two sequential calls:
// a free-form vision pass over the product image, then a structured JSON
// extraction pass over the vision output.
type OpenAIBuilder struct {
	apiKey       string
	visionModel  string
	extractModel string
	baseURL      string
	organization string
	client       *http.Client
}

const openAIDefaultTimeout = 60 * time.Second

const (
	defaultVisionModel  = "gpt-4o"
	defaultExtractModel = "gpt-4o-mini"
)

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	ResponseFormat *openAIFormat   `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIBuilder validates the options and returns a builder.
func NewOpenAIBuilder(opts OpenAIOptions) (*OpenAIBuilder, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	visionModel := strings.TrimSpace(opts.VisionModel)
	if visionModel == "" {
		visionModel = defaultVisionModel
	}
	extractModel := strings.TrimSpace(opts.ExtractModel)
	if extractModel == "" {
		extractModel = defaultExtractModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	return &OpenAIBuilder{
		apiKey:       strings.TrimSpace(opts.APIKey),
		visionModel:  visionModel,
		extractModel: extractModel,
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
	}, nil
}

// GenerateAdPrompt runs the vision pass over the product image and extracts
// the structured prompt pair from its output.
func (o *OpenAIBuilder) GenerateAdPrompt(ctx context.Context, imageURL, productDescription, targetAudience, backgroundDescription string) (*domain.AdPrompt, error) {
	image := imageURL
	if !strings.HasPrefix(image, "http") {
		image = "data:image/jpeg;base64," + image
	}
	visionOut, err := o.chat(ctx, openAIChatRequest{
		Model: o.visionModel,
		Messages: []openAIMessage{
			{
				Role: "user",
				Content: []openAIContentPart{
					{Type: "text", Text: buildInpaintPrompt(productDescription, targetAudience, backgroundDescription)},
					{Type: "image_url", ImageURL: &openAIImageURL{URL: image}},
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	extractOut, err := o.chat(ctx, openAIChatRequest{
		Model:          o.extractModel,
		ResponseFormat: &openAIFormat{Type: "json_object"},
		Messages: []openAIMessage{
			{Role: "system", Content: "Based on the analysis, generate a structured JSON output with fields positive_prompt and negative_prompt for the ad-inpaint model."},
			{Role: "user", Content: visionOut},
		},
	})
	if err != nil {
		return nil, err
	}

	var parsed domain.AdPrompt
	if err := json.Unmarshal([]byte(extractOut), &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse structured prompt: %v", domain.ErrUpstreamModel, err)
	}
	if parsed.PositivePrompt == "" || parsed.NegativePrompt == "" {
		return nil, fmt.Errorf("%w: structured prompt is missing required fields", domain.ErrUpstreamModel)
	}
	return &parsed, nil
}

func (o *OpenAIBuilder) chat(ctx context.Context, payload openAIChatRequest) (string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("%w: encode request: %v", domain.ErrUpstreamModel, err)
	}
	endpoint := fmt.Sprintf("%s/chat/completions", o.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", domain.ErrUpstreamModel, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", o.organization)
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamModel, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: openai status %d", domain.ErrUpstreamModel, resp.StatusCode)
	}
	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrUpstreamModel, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", domain.ErrUpstreamModel)
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: openai returned an empty message", domain.ErrUpstreamModel)
	}
	return text, nil
}
