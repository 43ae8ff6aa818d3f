// Package webhook dispatches actions to the external automation workflows
// (image generation, publishing, job email, job intake).
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single webhook call.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// Endpoint names an automation workflow.
type Endpoint string

const (
	GenerateImage Endpoint = "generate_image"
	PublishPost   Endpoint = "publish"
	SendEmail     Endpoint = "send_email"
	JobIntake     Endpoint = "job_intake"
)

// ErrNotConfigured is returned when an endpoint has no URL configured.
var ErrNotConfigured = errors.New("webhook URL not configured")

// Config holds the endpoint URLs and the shared secret.
type Config struct {
	URLs    map[Endpoint]string
	Secret  string
	Timeout time.Duration
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Endpoint   Endpoint
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook %s failed: %s", e.Endpoint, e.Status)
}

// Error represents a transport or encoding failure.
type Error struct {
	Endpoint Endpoint
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("webhook %s: %s: %v", e.Endpoint, e.Message, e.Cause)
	}
	return fmt.Sprintf("webhook %s: %s", e.Endpoint, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Response is the decoded body returned by a workflow. Body is nil when the
// workflow answered with an empty or non-JSON body.
type Response struct {
	StatusCode int
	Body       map[string]any
}

// Client posts JSON payloads to configured workflow endpoints. Each call is
// a single attempt.
type Client struct {
	config   Config
	http     *http.Client
	validate *validator.Validate
	logger   *zap.Logger
}

// New creates a client. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config:   cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		validate: validator.New(),
		logger:   logger,
	}
}

// Configured reports whether endpoint has a URL.
func (c *Client) Configured(endpoint Endpoint) bool {
	return c.config.URLs[endpoint] != ""
}

// Send validates payload and POSTs it as JSON to endpoint.
func (c *Client) Send(ctx context.Context, endpoint Endpoint, payload any) (*Response, error) {
	url := c.config.URLs[endpoint]
	if url == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, endpoint)
	}

	if err := c.validate.Struct(payload); err != nil {
		return nil, &Error{Endpoint: endpoint, Message: "invalid payload", Cause: err}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Endpoint: endpoint, Message: "failed to encode payload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Endpoint: endpoint, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Secret)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("webhook request failed",
			zap.String("endpoint", string(endpoint)),
			zap.Error(err))
		return nil, &Error{Endpoint: endpoint, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Endpoint: endpoint, Message: "failed to read response body", Cause: err}
	}

	c.logger.Debug("webhook call",
		zap.String("endpoint", string(endpoint)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}

	out := &Response{StatusCode: resp.StatusCode}
	if len(bytes.TrimSpace(raw)) > 0 {
		var decoded map[string]any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			out.Body = decoded
		}
	}
	return out, nil
}
