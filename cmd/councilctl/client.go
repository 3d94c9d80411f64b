package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/ai-product-council/utils"
)

// apiClient talks to a running api-gateway
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// apiError is a non-2xx answer from the server
type apiError struct {
	Status  int
	Kind    string
	Message string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Status, e.Kind)
	}
	return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Kind, e.Message)
}

// do sends the request and returns the raw body of a 2xx response.
// accept lists extra statuses whose body is still a valid payload.
func (c *apiClient) do(ctx context.Context, method, path string, body interface{}, accept ...int) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}
	for _, status := range accept {
		if resp.StatusCode == status {
			return raw, nil
		}
	}

	apiErr := &apiError{Status: resp.StatusCode}
	var errBody utils.ErrorResponse
	if json.Unmarshal(raw, &errBody) == nil {
		apiErr.Kind = errBody.Error
		apiErr.Message = errBody.Message
	}
	return nil, apiErr
}

func (c *apiClient) getJSON(ctx context.Context, path string, dst interface{}, accept ...int) ([]byte, error) {
	raw, err := c.do(ctx, http.MethodGet, path, nil, accept...)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return raw, nil
}

func (c *apiClient) postJSON(ctx context.Context, path string, body, dst interface{}) ([]byte, error) {
	raw, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return raw, nil
}
