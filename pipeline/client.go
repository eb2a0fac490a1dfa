package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Client is the promise-style adapter: verb helpers over JSON endpoints
// that unwrap the transport envelope and surface typed failures.
type Client struct {
	core       *Core
	baseURL    string
	httpClient *http.Client
}

// NewClient creates the adapter over the shared pipeline core.
func NewClient(core *Core, transport http.RoundTripper) *Client {
	return &Client{
		core:    core,
		baseURL: core.config.APIBaseURL,
		httpClient: &http.Client{
			Transport:     core.Transport(transport),
			Timeout:       core.config.ClientTimeout,
			CheckRedirect: noRedirect,
		},
	}
}

// Get issues a GET and decodes the 2xx payload into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

// envelope is the backend error shape; message takes precedence over the
// transport status text.
type envelope struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	requestURL := joinURL(c.baseURL, path)
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.core.failTransport(requestURL, err, false)
	}
	defer resp.Body.Close()

	if isUnauthorized(resp, c.core.config.LoginPath) {
		return c.core.failUnauthorized(ctx, requestURL, resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.core.failTransport(requestURL, err, false)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := resp.Status
		wrapped := envelope{}
		if json.Unmarshal(data, &wrapped) == nil && wrapped.Message != "" {
			message = wrapped.Message
		}
		return NewFailure(GenericRequestFailure, requestURL, resp.StatusCode, message, nil)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %v: %w", requestURL, err)
	}
	return nil
}
