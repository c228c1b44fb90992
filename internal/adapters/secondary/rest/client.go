package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/gatherly/dashboard-sync/internal/core/errors"
	"github.com/gatherly/dashboard-sync/internal/core/ports"
)

const defaultTimeout = 15 * time.Second

// Client is the shared HTTP plumbing for the marketplace REST APIs: base URL,
// bearer auth, request IDs, JSON codec, status mapping.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  ports.TokenSource
	logger  *slog.Logger
}

// NewClient creates a REST client rooted at baseURL (no trailing slash).
func NewClient(baseURL string, tokens ports.TokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		tokens:  tokens,
		logger:  logger.With("component", "rest_client"),
	}
}

// envelope matches the server's {"data": ...} response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// do runs one JSON request. A non-nil out is filled from the response's data
// field. Statuses >= 400 map to ErrBadStatus.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.tokens.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Warn("request failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, apperrors.ErrBadStatus)
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
