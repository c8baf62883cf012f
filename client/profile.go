package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/JP-N/mumundo-web/models"
)

func (c *Client) Profile(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/api/user/profile", token, nil, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// UpdateProfile patches the username and, when picture is non-nil, uploads a
// new profile picture. The backend expects multipart form data here, unlike
// every other endpoint.
func (c *Client) UpdateProfile(ctx context.Context, token, username string, picture io.Reader, pictureName string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("username", username); err != nil {
		return fmt.Errorf("failed to build form: %w", err)
	}

	if picture != nil {
		part, err := w.CreateFormFile("profile_picture", pictureName)
		if err != nil {
			return fmt.Errorf("failed to build form: %w", err)
		}
		if _, err := io.Copy(part, picture); err != nil {
			return fmt.Errorf("failed to build form: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/api/user/profile", &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return c.apiError(http.MethodPatch, "/api/user/profile", resp.StatusCode, data)
	}

	return nil
}

// SelectedPlaylists returns the playlists the user picked for sharing from
// their linked provider account.
func (c *Client) SelectedPlaylists(ctx context.Context, token string) ([]models.PlaylistSummary, error) {
	var playlists []models.PlaylistSummary
	if err := c.do(ctx, http.MethodGet, "/api/user/selected-playlists", token, nil, &playlists); err != nil {
		return nil, err
	}

	return playlists, nil
}
