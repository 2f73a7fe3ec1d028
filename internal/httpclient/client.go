package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultTimeout bounds a single provider call. Local models on a cold
	// start can take a while to load, so it is generous.
	DefaultTimeout = 2 * time.Minute
	// MaxResponseBytes caps HTTP response bodies. A quick translation answer
	// is a few kilobytes at most.
	MaxResponseBytes      = 2 * 1024 * 1024
	MaxIdleConns          = 16
	MaxIdleConnsPerHost   = 4
	IdleConnTimeout       = 90 * time.Second
	TLSHandshakeTimeout   = 30 * time.Second
	ExpectContinueTimeout = 2 * time.Second
)

var (
	defaultClient     *http.Client
	defaultClientOnce sync.Once
	overrideClient    *http.Client
)

// NewClient returns a new http.Client with the specified timeout.
func NewClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          MaxIdleConns,
		MaxIdleConnsPerHost:   MaxIdleConnsPerHost,
		IdleConnTimeout:       IdleConnTimeout,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ExpectContinueTimeout: ExpectContinueTimeout,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// GetDefaultClient returns a standardized http.Client for use across the application.
func GetDefaultClient() *http.Client {
	if overrideClient != nil {
		return overrideClient
	}
	defaultClientOnce.Do(func() {
		defaultClient = NewClient(DefaultTimeout)
	})
	return defaultClient
}

// SetDefaultClientForTesting overrides the singleton client for tests.
// It returns a restore function to reset the previous client.
func SetDefaultClientForTesting(client *http.Client) func() {
	prevOverride := overrideClient
	overrideClient = client
	return func() {
		overrideClient = prevOverride
	}
}

// DoAndRead performs an HTTP request, reads the entire response body,
// ensures the body is closed, and returns the body content and the response object.
// This prevents resource leaks by always closing the response body.
func DoAndRead(client *http.Client, req *http.Request) ([]byte, *http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength > MaxResponseBytes {
		return nil, resp, fmt.Errorf("response body too large (limit %d bytes)", MaxResponseBytes)
	}

	limited := &io.LimitedReader{R: resp.Body, N: MaxResponseBytes + 1}
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, resp, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseBytes {
		return nil, resp, fmt.Errorf("response body too large (limit %d bytes)", MaxResponseBytes)
	}

	return body, resp, nil
}

// PostJSON marshals payload, POSTs it to url with the given extra headers and
// reads the response through DoAndRead. Non-2xx statuses are returned as-is;
// classifying them is the caller's job.
func PostJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) ([]byte, *http.Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if client == nil {
		client = GetDefaultClient()
	}
	return DoAndRead(client, req)
}
