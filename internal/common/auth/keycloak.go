// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"comms-portal/internal/common/errors"
	portalhttp "comms-portal/internal/common/http"
)

// KeycloakClient validates admin bearer tokens against Keycloak.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *portalhttp.Client
}

// Principal is the authenticated actor attached to admin requests. The
// approver identity on every transition comes from here, never from the
// request body.
type Principal struct {
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	Username string `json:"preferred_username"`
}

// introspectionResponse holds the response from Keycloak's token
// introspection endpoint (RFC 7662).
type introspectionResponse struct {
	Active   bool   `json:"active"`
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	Username string `json:"preferred_username"`
}

// NewKeycloakClient creates a new instance of KeycloakClient.
func NewKeycloakClient(baseURL, realm, clientID, clientSecret string) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   portalhttp.NewClient(30 * time.Second),
	}
}

// IntrospectToken validates a bearer token and returns the principal it
// belongs to. Inactive or unknown tokens return an authentication error.
func (k *KeycloakClient) IntrospectToken(ctx context.Context, token string) (*Principal, error) {
	introspectURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token/introspect", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, "POST", introspectURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &errors.StandardError{
			Code:      "HTTP_REQUEST_ERROR",
			Message:   "Failed to create introspection request",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(k.clientID, k.clientSecret)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, &errors.StandardError{
			Code:      "NETWORK_ERROR",
			Message:   "Failed to reach Keycloak",
			Details:   err.Error(),
			Retryable: true,
			Timestamp: time.Now().UTC(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &errors.StandardError{
			Code:      "KEYCLOAK_API_ERROR",
			Message:   "Keycloak introspection error",
			Details:   fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
			Retryable: k.isTransientHTTPError(resp.StatusCode),
			Timestamp: time.Now().UTC(),
		}
	}

	var introspection introspectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&introspection); err != nil {
		return nil, &errors.StandardError{
			Code:      "DESERIALIZATION_ERROR",
			Message:   "Failed to decode introspection response",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	}

	if !introspection.Active {
		return nil, errors.NewAuthenticationError("token is not active")
	}
	if introspection.Email == "" && introspection.Username == "" {
		return nil, errors.NewAuthenticationError("token carries no identity")
	}

	return &Principal{
		Subject:  introspection.Subject,
		Email:    introspection.Email,
		Username: introspection.Username,
	}, nil
}

// Identity returns the best identifier for stamping approvedBy fields.
func (p *Principal) Identity() string {
	if p.Email != "" {
		return p.Email
	}
	return p.Username
}

func (k *KeycloakClient) isTransientHTTPError(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
