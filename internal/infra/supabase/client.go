package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Options configures the auth client.
type Options struct {
	BaseURL    string
	ServiceKey string
	HTTPClient *http.Client
}

// Client talks to the Supabase auth (GoTrue) REST endpoints. It fails closed:
// any upstream problem is reported as an authentication error to callers.
type Client struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

const defaultTimeout = 15 * time.Second

// ErrInvalidToken is returned when the token pair cannot be resolved to a user.
var ErrInvalidToken = errors.New("supabase: invalid token")

// NewClient validates the options and returns a Client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("supabase: base url is required")
	}
	if strings.TrimSpace(opts.ServiceKey) == "" {
		return nil, errors.New("supabase: service role key is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		serviceKey: strings.TrimSpace(opts.ServiceKey),
		client:     client,
	}, nil
}

type userResponse struct {
	ID string `json:"id"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// GetUser resolves a bearer access token to its user id.
func (c *Client) GetUser(ctx context.Context, accessToken string) (string, error) {
	if strings.TrimSpace(accessToken) == "" {
		return "", ErrInvalidToken
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", fmt.Errorf("supabase: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("apikey", c.serviceKey)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("supabase: user lookup: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrInvalidToken
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("supabase: user lookup status %d", resp.StatusCode)
	}
	var user userResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("supabase: decode user: %w", err)
	}
	if user.ID == "" {
		return "", ErrInvalidToken
	}
	return user.ID, nil
}

// Authenticate validates the token pair and returns the user id. An expired
// access token is refreshed once with the refresh token before giving up.
func (c *Client) Authenticate(ctx context.Context, accessToken, refreshToken string) (string, error) {
	if strings.TrimSpace(accessToken) == "" || strings.TrimSpace(refreshToken) == "" {
		return "", ErrInvalidToken
	}
	userID, err := c.GetUser(ctx, accessToken)
	if err == nil {
		return userID, nil
	}
	if !errors.Is(err, ErrInvalidToken) {
		return "", err
	}
	refreshed, err := c.refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	return c.GetUser(ctx, refreshed)
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (string, error) {
	body, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/token?grant_type=refresh_token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("supabase: build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.serviceKey)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("supabase: refresh: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return "", ErrInvalidToken
	}
	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("supabase: decode refresh: %w", err)
	}
	if out.AccessToken == "" {
		return "", ErrInvalidToken
	}
	return out.AccessToken, nil
}
