// Package phoneapi talks to the remote phone number service: listing the
// numbers attached to an API token and connecting one of them to a
// location.
package phoneapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	defaultListFailure    = "Failed to connect"
	defaultConnectFailure = "Failed to connect user."
	maxErrorBodyBytes     = 64 << 10
)

// ErrMissingToken is returned before any request is made without a token.
var ErrMissingToken = errors.New("phoneapi: API token is required")

// APIError carries a non-2xx response and the server's message, if any.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Logger records client diagnostics. It matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Client calls the list and connect endpoints.
type Client struct {
	baseURL     string
	listPath    string
	connectPath string
	userAgent   string
	http        *http.Client
	logger      Logger
}

// Option customizes Client construction.
type Option func(*Client)

// WithHTTPClient shares an http.Client, typically one carrying the
// location interceptor.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a client for baseURL with the two endpoint paths.
func NewClient(baseURL, listPath, connectPath string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		listPath:    listPath,
		connectPath: connectPath,
		userAgent:   "phonelink/dev",
		http:        http.DefaultClient,
		logger:      nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type listResponse struct {
	Data []struct {
		Number string `json:"number"`
	} `json:"data"`
}

type connectRequest struct {
	LocationID string `json:"location_id"`
	FromNumber string `json:"from_number"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// ListNumbers returns the phone numbers attached to token, in response order.
func (c *Client) ListNumbers(ctx context.Context, token string) ([]string, error) {
	resp, err := c.post(ctx, c.listPath, token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		return nil, apiError(resp, defaultListFailure)
	}
	var payload listResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("phoneapi: decode numbers: %w", err)
	}
	numbers := make([]string, 0, len(payload.Data))
	for _, item := range payload.Data {
		numbers = append(numbers, item.Number)
	}
	return numbers, nil
}

// Connect links fromNumber to locationID. Any 2xx status is success; the
// body is not inspected.
func (c *Client) Connect(ctx context.Context, token, locationID, fromNumber string) error {
	resp, err := c.post(ctx, c.connectPath, token, connectRequest{
		LocationID: locationID,
		FromNumber: fromNumber,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !success(resp.StatusCode) {
		return apiError(resp, defaultConnectFailure)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) post(ctx context.Context, path, token string, body any) (*http.Response, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("phoneapi: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("phoneapi: create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Printf("phoneapi: POST %s request=%s failed: %v", path, requestID, err)
		return nil, fmt.Errorf("phoneapi: request: %w", err)
	}
	c.logger.Printf("phoneapi: POST %s request=%s status=%d", path, requestID, resp.StatusCode)
	return resp, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

func apiError(resp *http.Response, fallback string) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: fallback}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return apiErr
	}
	var payload errorResponse
	if json.Unmarshal(data, &payload) == nil {
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			apiErr.Message = msg
		}
	}
	return apiErr
}
