package ratesheet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPAPIClient queries a remote rate table service over HTTP.
type HTTPAPIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based rate table client.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Lookup fetches candidate rows from the remote service.
// GET /rates?table={table}&weight={kg}&postal_code={code}
func (c *HTTPAPIClient) Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error) {
	q := url.Values{}
	q.Set("table", req.Table)
	q.Set("weight", strconv.FormatFloat(req.WeightKg, 'f', -1, 64))
	q.Set("postal_code", req.PostalCode)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rates?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result LookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode rates response: %w", err)
	}
	result.Table = req.Table

	return &result, nil
}

// Close is a no-op for the HTTP client.
func (c *HTTPAPIClient) Close() error {
	return nil
}

// parseError extracts error information from an HTTP response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		return &apiErr
	}

	code := fmt.Sprintf("HTTP_%d", resp.StatusCode)
	if resp.StatusCode == http.StatusNotFound {
		code = codeTableNotFound
	}
	return &APIError{
		Code:    code,
		Message: string(body),
	}
}

var _ APIClient = (*HTTPAPIClient)(nil)
