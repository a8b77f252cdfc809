// Package port wraps the Port REST API surface the purge job consumes:
// token exchange, entity listing for one blueprint, and entity deletion.
package port

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/bgilleran-port/port-tsm-scripts/internal/errors"
)

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps the Port REST API for a single blueprint.
type Client struct {
	baseURL    string
	blueprint  string
	httpClient HTTPClient
	token      string
	logger     zerolog.Logger
}

// NewClient creates a new Port API client. The client holds no token until
// Authenticate succeeds.
func NewClient(baseURL, blueprint string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		blueprint:  blueprint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "port").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// BaseURL returns the base URL of the Port API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Authenticate exchanges client credentials for a bearer token. The token is
// retained on the client and applied to every subsequent request; it is
// assumed valid for the duration of the run.
func (c *Client) Authenticate(ctx context.Context, clientID, clientSecret string) (string, error) {
	endpoint := "/v1/auth/access_token"
	payload, err := json.Marshal(map[string]string{
		"clientId":     clientID,
		"clientSecret": clientSecret,
	})
	if err != nil {
		return "", fmt.Errorf("encoding auth payload: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("authenticating with Port API: %w", err)
	}
	body, err := readBody(resp)
	if err != nil {
		return "", fmt.Errorf("reading auth response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", perrors.WrapAPIError(perrors.ErrAuthRejected, c.baseURL+endpoint, resp.StatusCode, string(body))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", perrors.NewAPIError(c.baseURL+endpoint, resp.StatusCode, string(body))
	}

	var tokens struct {
		AccessToken string `json:"accessToken"`
		AccessSnake string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokens); err != nil {
		return "", fmt.Errorf("%w: decoding auth response: %v", perrors.ErrMalformedResponse, err)
	}
	token := tokens.AccessToken
	if token == "" {
		token = tokens.AccessSnake
	}
	if token == "" {
		return "", fmt.Errorf("%w: auth response carries no access token: %s", perrors.ErrMalformedResponse, body)
	}

	c.token = token
	c.logger.Debug().Msg("authenticated with Port API")
	return token, nil
}

// ListEntities fetches every entity of the client's blueprint. The endpoint
// returns the complete set in a single response; no pagination is attempted.
// Both documented response shapes are accepted: an object with an "entities"
// field, or a bare array.
func (c *Client) ListEntities(ctx context.Context) ([]Entity, error) {
	endpoint := fmt.Sprintf("/v1/blueprints/%s/entities", c.blueprint)

	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching entities: %w", err)
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("reading entities response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, perrors.WrapAPIError(perrors.ErrInvalidRequest, c.baseURL+endpoint, resp.StatusCode, string(body))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, perrors.NewAPIError(c.baseURL+endpoint, resp.StatusCode, string(body))
	}

	return decodeEntities(body)
}

// DeleteEntity deletes one entity by identifier. The identifier is
// percent-encoded so reserved characters (+, @, /, spaces) cannot splice the
// request path. Any non-2xx response is returned as an *errors.APIError for
// the caller to handle; nothing here aborts a run.
func (c *Client) DeleteEntity(ctx context.Context, identifier string) error {
	endpoint := fmt.Sprintf("/v1/blueprints/%s/entities/%s", c.blueprint, encodeIdentifier(identifier))

	resp, err := c.do(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("deleting entity %s: %w", identifier, err)
	}
	body, err := readBody(resp)
	if err != nil {
		return fmt.Errorf("reading delete response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return perrors.NewAPIError(c.baseURL+endpoint, resp.StatusCode, string(body))
	}
	return nil
}

// do executes one API request with JSON headers and, once authenticated, the
// bearer token. Status handling is left to the caller.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return resp, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func decodeEntities(body []byte) ([]Entity, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entities []Entity
		if err := json.Unmarshal(trimmed, &entities); err != nil {
			return nil, fmt.Errorf("%w: decoding entity array: %v", perrors.ErrMalformedResponse, err)
		}
		return entities, nil
	}

	var wrapper struct {
		Entities []Entity `json:"entities"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, fmt.Errorf("%w: decoding entities response: %v", perrors.ErrMalformedResponse, err)
	}
	return wrapper.Entities, nil
}

// encodeIdentifier percent-encodes every byte outside the RFC 3986
// unreserved set. Stricter than url.PathEscape on purpose: Port identifiers
// may contain +, @ or / and must always occupy exactly one path segment.
func encodeIdentifier(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
			c == '-' || c == '_' || c == '.' || c == '~' {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}
