package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/buildproc/internal/model"
)

// HTTPClient implements Client against the server's REST API.
type HTTPClient struct {
	baseURL    string
	accessKey  string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "https://develocity.example.com"). When accessKey is non-empty, an
// Authorization header is set on every request.
func NewHTTPClient(baseURL, accessKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accessKey:  accessKey,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func (c *HTTPClient) GetBuilds(ctx context.Context, q BuildsQuery) ([]*model.Build, error) {
	v := url.Values{}
	v.Set("reverse", "true")
	if q.MaxBuilds > 0 {
		v.Set("maxBuilds", strconv.Itoa(q.MaxBuilds))
	}
	if q.FromBuild != "" {
		v.Set("fromBuild", q.FromBuild)
	}
	if q.Query != "" {
		v.Set("query", q.Query)
	}
	setModels(v, q.Models)

	var builds []*model.Build
	if err := c.doJSON(ctx, http.MethodGet, "/api/builds?"+v.Encode(), &builds); err != nil {
		return nil, err
	}
	if q.Models.HasAll() {
		for _, b := range builds {
			b.AllModels = true
		}
	}
	return builds, nil
}

func (c *HTTPClient) GetBuild(ctx context.Context, id string, models model.ModelSet) (*model.Build, error) {
	v := url.Values{}
	setModels(v, models)

	path := "/api/builds/" + url.PathEscape(id)
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var b model.Build
	if err := c.doJSON(ctx, http.MethodGet, path, &b); err != nil {
		return nil, err
	}
	b.AllModels = models.HasAll()
	return &b, nil
}

// setModels encodes the requested models. The wildcard is sent as
// allModels=true rather than as a model name.
func setModels(v url.Values, models model.ModelSet) {
	if models.HasAll() {
		v.Set("allModels", "true")
		return
	}
	for _, name := range models.Names() {
		v.Add("models", name)
	}
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the same request may succeed after a delay
// (rate limited or temporarily unavailable).
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
}

// TooLarge reports whether the server gave up on the request because it
// asked for too much at once. A smaller request may succeed.
func (e *APIError) TooLarge() bool {
	switch e.StatusCode {
	case http.StatusGatewayTimeout, http.StatusRequestTimeout, http.StatusRequestEntityTooLarge:
		return true
	}
	return false
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// doJSON performs an HTTP request and decodes the JSON response into result.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.accessKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		// Problem details (RFC 7807) or a plain {"error": "..."} body.
		var errResp struct {
			Error  string `json:"error"`
			Title  string `json:"title"`
			Detail string `json:"detail"`
		}
		if json.Unmarshal(respBody, &errResp) == nil {
			for _, msg := range []string{errResp.Detail, errResp.Title, errResp.Error} {
				if msg != "" {
					return &APIError{StatusCode: resp.StatusCode, Message: msg}
				}
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
