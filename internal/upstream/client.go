// Package upstream is the HTTP client for the platform's admin REST APIs.
//
// GET endpoints answer {"success": true, "<collection>": [...]}; mutation
// endpoints answer {"success": bool, "message": "..."}. Requests are never
// retried: recovery is a manual refresh.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/good-yellow-bee/pricedesk/internal/metrics"
	"github.com/good-yellow-bee/pricedesk/pkg/config"
)

const maxBodySize = 32 << 20

// Config configures the upstream client.
type Config struct {
	// BaseURL is used for every domain without an override.
	BaseURL string
	// BaseURLs holds per-domain overrides keyed by dashboard name.
	BaseURLs map[string]string
	// Token is sent as a bearer token.
	Token string
	// Timeout bounds each request. 0 means 30s.
	Timeout time.Duration
}

// Client calls the upstream admin APIs.
type Client struct {
	baseURL    string
	baseURLs   map[string]string
	token      string
	httpClient *http.Client
	log        logrus.FieldLogger
}

// NewClient creates a new upstream API client.
func NewClient(cfg Config, log logrus.FieldLogger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	overrides := make(map[string]string, len(cfg.BaseURLs))
	for k, v := range cfg.BaseURLs {
		if v != "" {
			overrides[k] = strings.TrimRight(v, "/")
		}
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		baseURLs: overrides,
		token:    cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log.WithField("component", "upstream"),
	}
}

// BaseURL returns the effective base URL for domain.
func (c *Client) BaseURL(domain string) string {
	if u, ok := c.baseURLs[domain]; ok {
		return u
	}
	return c.baseURL
}

// envelope is the common response wrapper. Unknown keys, including the
// collection, stay raw until asked for.
type envelope struct {
	Success bool
	Message string
	Code    string
	raw     map[string]json.RawMessage
}

func decodeEnvelope(data []byte) (*envelope, error) {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	env := &envelope{raw: raw}
	if v, ok := raw["success"]; ok {
		_ = json.Unmarshal(v, &env.Success)
	}
	env.Message = rawString(raw, "message")
	if env.Message == "" {
		env.Message = rawString(raw, "error")
	}
	env.Code = rawString(raw, "code")
	if env.Code == "" {
		env.Code = rawString(raw, "errorCode")
	}
	return env, nil
}

func rawString(raw map[string]json.RawMessage, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

// do performs one request and classifies the outcome. On success it returns
// the decoded envelope.
func (c *Client) do(ctx context.Context, domain, method, path string, body any) (*envelope, error) {
	url := c.BaseURL(domain) + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", config.UserAgent())

	start := time.Now()
	outcome := "ok"
	defer func() {
		metrics.UpstreamRequestsTotal.WithLabelValues(domain, method, outcome).Inc()
		metrics.UpstreamRequestDuration.WithLabelValues(domain, method).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "network"
		c.log.WithFields(logrus.Fields{"domain": domain, "method": method, "url": url}).WithError(err).Warn("upstream request failed")
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		outcome = "network"
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	env, decodeErr := decodeEnvelope(data)
	if decodeErr != nil {
		env = &envelope{}
	}

	if isAuthFailure(resp.StatusCode, env.Code) {
		outcome = "auth"
		return nil, &AuthError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "app"
		return nil, &AppError{Status: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		outcome = "app"
		return nil, &AppError{Status: resp.StatusCode, Message: ""}
	}
	if !env.Success {
		outcome = "app"
		return nil, &AppError{Status: resp.StatusCode, Message: env.Message}
	}

	c.log.WithFields(logrus.Fields{
		"domain":   domain,
		"method":   method,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("upstream request")

	return env, nil
}

// FetchCollection GETs path and returns the raw objects stored under key.
// A successful response without the key yields an empty collection.
func (c *Client) FetchCollection(ctx context.Context, domain, path, key string) ([]map[string]any, error) {
	env, err := c.do(ctx, domain, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	return env.collection(key)
}

// collection returns the objects stored under key, looking inside "data"
// when the top level lacks it.
func (e *envelope) collection(key string) ([]map[string]any, error) {
	raw, ok := e.raw[key]
	if !ok || string(raw) == "null" {
		// Some endpoints nest the collection under "data".
		if nested, ok := e.raw["data"]; ok {
			var inner map[string]json.RawMessage
			if json.Unmarshal(nested, &inner) == nil {
				raw = inner[key]
			}
		}
	}
	if len(raw) == 0 || string(raw) == "null" {
		return []map[string]any{}, nil
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &AppError{Status: http.StatusOK, Message: fmt.Sprintf("unexpected %q payload", key)}
	}
	return items, nil
}

// ParseCollection decodes a saved response body: either a bare JSON array
// or an envelope holding the collection under key. An envelope reporting
// success=false is an AppError.
func ParseCollection(data []byte, key string) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []map[string]any
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("parse collection: %w", err)
		}
		return items, nil
	}

	env, err := decodeEnvelope(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse collection: %w", err)
	}
	if _, ok := env.raw["success"]; ok && !env.Success {
		return nil, &AppError{Status: http.StatusOK, Message: env.Message}
	}
	return env.collection(key)
}

// MutationResult is the body of a successful mutation.
type MutationResult struct {
	Message string `json:"message,omitempty"`
}

// Mutate sends a PUT, POST or DELETE with an optional JSON body.
func (c *Client) Mutate(ctx context.Context, domain, method, path string, body any) (*MutationResult, error) {
	switch method {
	case http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodPatch:
	default:
		return nil, fmt.Errorf("unsupported mutation method %s", method)
	}
	env, err := c.do(ctx, domain, method, path, body)
	if err != nil {
		return nil, err
	}
	return &MutationResult{Message: env.Message}, nil
}
