// internal/common/http/client.go
package http

import (
	"net/http"
	"time"
)

// Client is a thin wrapper around http.Client with an enforced timeout,
// shared by outbound integrations (Keycloak).
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}
