// Package api is the typed HTTP client for the PayPath backend. Every call
// attaches the vault session as a bearer header, unwraps the response envelope
// and surfaces non-2xx outcomes as *Error values.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paypath/paypath/internal/vault"
)

const defaultTimeout = 30 * time.Second

// Client talks to one backend base URL.
type Client struct {
	base           string
	http           *http.Client
	vault          vault.Vault
	logger         *slog.Logger
	onUnauthorized func()
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUnauthorizedHook registers a callback invoked whenever the backend
// answers 401. The auth controller uses it to clear the session.
func WithUnauthorizedHook(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// New builds a client reading bearer credentials from the given vault.
func New(baseURL string, v vault.Vault, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimSuffix(baseURL, "/"),
		http:   &http.Client{Timeout: defaultTimeout},
		vault:  v,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs one request. A nil out skips decoding; otherwise the unwrapped
// envelope payload is decoded into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session, ok := c.vault.Read(); ok {
		req.Header.Set("Authorization", session.TokenType+" "+session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, Method: method, URL: u, Body: string(payload)}
		c.logger.Warn("api error", "status", resp.StatusCode, "method", method, "url", u)
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	inner := unwrap(payload)
	if len(inner) == 0 {
		return fmt.Errorf("empty response body for %s %s", method, path)
	}
	if err := json.Unmarshal(inner, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
