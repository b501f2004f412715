package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Config holds the configuration for connecting to the CartGuard service.
type Config struct {
	APIURL    string // Base URL, e.g. "http://localhost:8080"
	AdminID   string // Dashboard admin ID
	AccessKey string // Dashboard access key
}

// CartGuardClient is a pure HTTP client for the CartGuard API. Gated
// endpoints require a dashboard session, which the client establishes
// lazily (create, initialize, authorize) and re-establishes on expiry.
type CartGuardClient struct {
	cfg        Config
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

// NewCartGuardClient creates a new client for the CartGuard service.
func NewCartGuardClient(cfg Config) *CartGuardClient {
	return &CartGuardClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the service.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ensureSession walks the navigation gate: a fresh session starts on the
// landing page, moves to login, and reaches the dashboard only after the
// credential pair is accepted.
func (c *CartGuardClient) ensureSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}

	raw, err := c.do(ctx, http.MethodPost, "/v1/sessions", nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	var created struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &created); err != nil || created.Token == "" {
		return "", fmt.Errorf("parse session token: %w", err)
	}

	if _, err := c.do(ctx, http.MethodPost, "/v1/sessions/initialize", nil, nil, created.Token); err != nil {
		return "", fmt.Errorf("initialize session: %w", err)
	}

	creds := map[string]string{
		"adminId":   c.cfg.AdminID,
		"accessKey": c.cfg.AccessKey,
	}
	if _, err := c.do(ctx, http.MethodPost, "/v1/sessions/authorize", nil, creds, created.Token); err != nil {
		return "", fmt.Errorf("authorize session: %w", err)
	}

	c.token = created.Token
	return c.token, nil
}

// dropSession forgets the cached token so the next call re-authenticates.
func (c *CartGuardClient) dropSession() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// doGated makes a request against a dashboard-gated endpoint, establishing
// a session first and retrying once if the cached session has expired.
func (c *CartGuardClient) doGated(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	token, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, method, path, query, body, token)
	if err != nil {
		var httpErr *httpError
		if errors.As(err, &httpErr) && (httpErr.status == http.StatusUnauthorized || httpErr.status == http.StatusForbidden) {
			c.dropSession()
			token, err = c.ensureSession(ctx)
			if err != nil {
				return nil, err
			}
			return c.do(ctx, method, path, query, body, token)
		}
		return nil, err
	}
	return raw, nil
}

type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.status, e.message)
}

// do makes an HTTP request to the service and returns the response body.
func (c *CartGuardClient) do(ctx context.Context, method, path string, query url.Values, body any, token string) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, &httpError{status: resp.StatusCode, message: apiErr.Message}
		}
		return nil, &httpError{status: resp.StatusCode, message: string(respBody)}
	}

	return json.RawMessage(respBody), nil
}

// ScanSession submits a checkout session for risk assessment.
func (c *CartGuardClient) ScanSession(ctx context.Context, itemCount int, cartValue, dwellMinutes float64, platform, funnelStage string) (json.RawMessage, error) {
	body := map[string]any{
		"itemCount":    itemCount,
		"cartValue":    cartValue,
		"dwellMinutes": dwellMinutes,
		"platform":     platform,
		"funnelStage":  funnelStage,
	}
	return c.doGated(ctx, http.MethodPost, "/v1/scan", nil, body)
}

// Forecast requests an abandonment projection for the given horizon.
// days <= 0 uses the server default.
func (c *CartGuardClient) Forecast(ctx context.Context, days int) (json.RawMessage, error) {
	var q url.Values
	if days > 0 {
		q = url.Values{"days": []string{strconv.Itoa(days)}}
	}
	return c.doGated(ctx, http.MethodGet, "/v1/forecast", q, nil)
}

// RecentScans lists recent risk assessments, newest first.
func (c *CartGuardClient) RecentScans(ctx context.Context, limit int) (json.RawMessage, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": []string{strconv.Itoa(limit)}}
	}
	return c.doGated(ctx, http.MethodGet, "/v1/scans", q, nil)
}

// FunnelSummary returns per-stage scan statistics.
func (c *CartGuardClient) FunnelSummary(ctx context.Context) (json.RawMessage, error) {
	return c.doGated(ctx, http.MethodGet, "/v1/journey/funnel", nil, nil)
}
