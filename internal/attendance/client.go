// Package attendance is a client for the attendance backend API.
package attendance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client talks to the attendance backend.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	captureDir string
}

// NewClient creates a client for the backend at rawURL (e.g. http://localhost:5000).
// No request timeout is set: a hung submission keeps the caller waiting until
// the transport gives up.
func NewClient(rawURL string) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid attendance API URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid attendance API URL %q: scheme and host are required", rawURL)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/api"
	parsed.RawPath = ""
	return &Client{baseURL: parsed, httpClient: &http.Client{}}, nil
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// resolveURL builds a full URL from the API base and an endpoint path,
// keeping an optional query string.
func (c *Client) resolveURL(endpoint string) string {
	if pathPart, query, ok := strings.Cut(endpoint, "?"); ok {
		u := c.baseURL.JoinPath(pathPart)
		u.RawQuery = query
		return u.String()
	}
	return c.baseURL.JoinPath(endpoint).String()
}

// SetCaptureDir enables API response capturing to the specified directory.
// Pass an empty string to disable capturing.
func (c *Client) SetCaptureDir(dir string) error {
	if dir == "" {
		c.captureDir = ""
		return nil
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("could not create capture directory: %w", err)
	}
	c.captureDir = dir
	return nil
}

// captureResponse saves the API response body to a file if capturing is enabled.
func (c *Client) captureResponse(endpoint string, body []byte) {
	if c.captureDir == "" {
		return
	}

	name, _, _ := strings.Cut(endpoint, "?")
	name = strings.TrimPrefix(strings.ReplaceAll(name, "/", "_"), "_")
	name = fmt.Sprintf("%s_%s.json", name, time.Now().Format("20060102_150405.000"))
	path := filepath.Join(c.captureDir, name)

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err == nil {
		body = pretty.Bytes()
	}

	if err := os.WriteFile(path, body, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to capture response to %s: %v\n", path, err)
	}
}
