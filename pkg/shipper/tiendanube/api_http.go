package tiendanube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP.
type HTTPAPIClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL   string
	UserAgent string // Tiendanube rejects requests without an identifying User-Agent
	Timeout   time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateShippingCarrier registers a carrier via the Tiendanube API.
// POST /{store_id}/shipping_carriers
func (c *HTTPAPIClient) CreateShippingCarrier(ctx context.Context, storeID, accessToken string, req *ShippingCarrierRequest) (*ShippingCarrier, error) {
	path := fmt.Sprintf("/%s/shipping_carriers", storeID)

	resp, err := c.doRequest(ctx, http.MethodPost, path, accessToken, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result ShippingCarrier
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode shipping carrier response: %w", err)
	}

	return &result, nil
}

// CreateCarrierOption registers a carrier option via the Tiendanube API.
// POST /{store_id}/shipping_carriers/{carrier_id}/options
func (c *HTTPAPIClient) CreateCarrierOption(ctx context.Context, storeID, accessToken string, carrierID int64, req *CarrierOptionRequest) (*CarrierOptionResponse, error) {
	path := fmt.Sprintf("/%s/shipping_carriers/%d/options", storeID, carrierID)

	resp, err := c.doRequest(ctx, http.MethodPost, path, accessToken, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result CarrierOptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode carrier option response: %w", err)
	}

	return &result, nil
}

// doRequest performs an HTTP request with proper headers and authentication.
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path, accessToken string, body interface{}) (*http.Response, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authentication", "bearer "+accessToken) // Tiendanube uses Authentication, not Authorization
	req.Header.Set("User-Agent", c.userAgent)

	return c.httpClient.Do(req)
}

// parseError extracts error information from an HTTP response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		return &apiErr
	}

	return &APIError{
		Code:    resp.StatusCode,
		Message: http.StatusText(resp.StatusCode),
		Description: func() json.RawMessage {
			if len(body) == 0 {
				return nil
			}
			quoted, _ := json.Marshal(string(body))
			return quoted
		}(),
	}
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
