// Package testutil provides the container, HTTP client and contract
// validator used by the integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Client calls the API with an optional bearer token and, when a validator
// is attached, checks every response against the OpenAPI contract.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client

	validator *OpenAPIValidator
	t         *testing.T
}

// NewClient creates a client that does not validate responses.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithValidator creates a client that validates responses with validator.
// Validation errors are reported to the test set with SetT.
func NewClientWithValidator(baseURL string, validator *OpenAPIValidator) *Client {
	c := NewClient(baseURL)
	c.validator = validator
	return c
}

// SetT sets the test that receives validation errors.
func (c *Client) SetT(t *testing.T) {
	c.t = t
}

// WithoutValidation returns a copy that skips contract checks, for requests
// that deliberately break the contract.
func (c *Client) WithoutValidation() *Client {
	clone := *c
	clone.validator = nil
	return &clone
}

// LoginAs exchanges credentials for a token and uses it on later requests.
func (c *Client) LoginAs(t *testing.T, email, password string) {
	t.Helper()
	c.t = t

	resp, err := c.POST("/api/users/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login as %s failed: status=%d body=%s", email, resp.StatusCode, ReadBody(t, resp))
	}

	var login struct {
		Token string `json:"token"`
	}
	DecodeJSON(t, resp, &login)
	c.Token = login.Token
}

// ClearToken makes later requests anonymous.
func (c *Client) ClearToken() {
	c.Token = ""
}

// GET performs a GET request.
func (c *Client) GET(path string) (*http.Response, error) {
	return c.Send(http.MethodGet, path, nil)
}

// POST performs a POST request with a JSON body.
func (c *Client) POST(path string, body interface{}) (*http.Response, error) {
	return c.Send(http.MethodPost, path, body)
}

// PUT performs a PUT request with a JSON body.
func (c *Client) PUT(path string, body interface{}) (*http.Response, error) {
	return c.Send(http.MethodPut, path, body)
}

// DELETE performs a DELETE request.
func (c *Client) DELETE(path string) (*http.Response, error) {
	return c.Send(http.MethodDelete, path, nil)
}

// Send performs a request, encoding body as JSON when it is not nil.
func (c *Client) Send(method, path string, body interface{}) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	if c.validator != nil && c.t != nil {
		// The sent request's body is drained; validation gets a fresh copy.
		req.Body = io.NopCloser(bytes.NewReader(payload))
		c.validator.ValidateResponse(c.t, req, resp)
	}

	return resp, nil
}

// DecodeJSON decodes the response body into v and closes it.
func DecodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// ReadBody returns the response body as a string and closes it.
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

// RandomName returns prefix with a random suffix, for records with unique names.
func RandomName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}
