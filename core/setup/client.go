// Package setup registers the service's custom commands with Stream Chat. Every call
// is check-then-act, so running it on each start is safe.
package setup

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

	"github.com/golang-jwt/jwt/v4"

	"github.com/m3rciful/apptbot/core/logger"
	"github.com/m3rciful/apptbot/core/netutil"
)

// CommandSpec is a custom command as known to the platform.
type CommandSpec struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Args        string `json:"args,omitempty"`
	Set         string `json:"set,omitempty"`
}

// ChannelType is the subset of a channel type's settings touched here.
type ChannelType struct {
	Name     string        `json:"name"`
	Commands []CommandSpec `json:"commands"`
}

// APIError is a non-2xx answer from the REST API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stream api %s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Code reports the HTTP status for handler summaries.
func (e *APIError) Code() string { return fmt.Sprintf("HTTP_%d", e.StatusCode) }

// Client talks to the Stream Chat REST API with a server-side token.
type Client struct {
	baseURL *url.URL
	apiKey  string
	token   string
	http    *http.Client
}

// NewClient builds a Client. A nil httpClient uses netutil.NewHTTPClient.
func NewClient(baseURL, apiKey, apiSecret string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("setup: invalid base url %q", baseURL)
	}
	token, err := ServerToken(apiSecret)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = netutil.NewHTTPClient()
	}
	return &Client{baseURL: u, apiKey: apiKey, token: token, http: httpClient}, nil
}

// ServerToken signs the server-side JWT the REST API expects.
func ServerToken(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("setup: empty api secret")
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"server": true})
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("setup: sign server token: %w", err)
	}
	return signed, nil
}

// ListCommands returns every custom command of the app.
func (c *Client) ListCommands(ctx context.Context) ([]CommandSpec, error) {
	var out struct {
		Commands []CommandSpec `json:"commands"`
	}
	if err := c.do(ctx, http.MethodGet, "/commands", nil, &out); err != nil {
		return nil, err
	}
	return out.Commands, nil
}

// CreateCommand registers cmd.
func (c *Client) CreateCommand(ctx context.Context, cmd CommandSpec) error {
	return c.do(ctx, http.MethodPost, "/commands", cmd, nil)
}

// GetChannelType fetches a channel type.
func (c *Client) GetChannelType(ctx context.Context, name string) (ChannelType, error) {
	var out ChannelType
	err := c.do(ctx, http.MethodGet, "/channeltypes/"+url.PathEscape(name), nil, &out)
	return out, err
}

// UpdateChannelTypeCommands replaces the commands enabled on a channel type.
func (c *Client) UpdateChannelTypeCommands(ctx context.Context, name string, commands []string) error {
	body := map[string]any{"commands": commands}
	return c.do(ctx, http.MethodPut, "/channeltypes/"+url.PathEscape(name), body, nil)
}

// SetCustomActionHandlerURL points the app's custom command webhook at actionURL.
func (c *Client) SetCustomActionHandlerURL(ctx context.Context, actionURL string) error {
	body := map[string]string{"custom_action_handler_url": actionURL}
	return c.do(ctx, http.MethodPatch, "/app", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	q := u.Query()
	q.Set("api_key", c.apiKey)
	u.RawQuery = q.Encode()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Stream-Auth-Type", "jwt")
	req.Header.Set("X-Stream-Client", "apptbot")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn(ctx, logger.CompSetup, "api.call",
			slog.String("status", "fail"),
			slog.String("method", method),
			slog.String("path", path),
			slog.String("err_kind", netutil.Classify(err)),
			slog.Duration("duration", time.Since(start)),
		)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	logger.Debug(ctx, logger.CompSetup, "api.call",
		slog.String("status", "ok"),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("http_code", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
