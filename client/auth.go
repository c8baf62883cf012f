package client

import (
	"context"
	"net/http"

	"github.com/JP-N/mumundo-web/models"
)

// Login exchanges credentials for a bearer token. Validation happens before
// calling; the backend only ever sees well-formed payloads.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (string, error) {
	var resp models.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", req, &resp); err != nil {
		return "", err
	}

	return resp.AccessToken, nil
}

// Register creates an account and returns the bearer token the backend
// issues alongside it, so a fresh signup lands authenticated.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	var resp models.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", "", req, &resp); err != nil {
		return "", err
	}

	return resp.AccessToken, nil
}

// Me verifies the token against the backend. A models.ErrUnauthorized here
// means the stored credential is stale and must be cleared.
func (c *Client) Me(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &user); err != nil {
		return nil, err
	}

	return &user, nil
}
