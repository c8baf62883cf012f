package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/JP-N/mumundo-web/models"
)

// PublicPlaylists lists every shared playlist. The token is optional; the
// endpoint serves anonymous browsers too.
func (c *Client) PublicPlaylists(ctx context.Context, token string) ([]models.PlaylistSummary, error) {
	var playlists []models.PlaylistSummary
	if err := c.do(ctx, http.MethodGet, "/api/playlists/public", token, nil, &playlists); err != nil {
		return nil, err
	}

	return playlists, nil
}

func (c *Client) UserPlaylists(ctx context.Context, token string) ([]models.PlaylistSummary, error) {
	var playlists []models.PlaylistSummary
	if err := c.do(ctx, http.MethodGet, "/api/playlists/user", token, nil, &playlists); err != nil {
		return nil, err
	}

	return playlists, nil
}

func (c *Client) Playlist(ctx context.Context, token, id string) (*models.PlaylistDetail, error) {
	var playlist models.PlaylistDetail
	if err := c.do(ctx, http.MethodGet, "/api/playlists/"+id, token, nil, &playlist); err != nil {
		return nil, err
	}

	return &playlist, nil
}

// DeletePlaylist removes a playlist. The backend enforces owner-or-admin.
func (c *Client) DeletePlaylist(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/playlists/"+id, token, nil, nil)
}

func (c *Client) SetVisibility(ctx context.Context, token, id string, public bool) error {
	req := models.VisibilityRequest{IsPublic: public}
	return c.do(ctx, http.MethodPatch, "/api/playlists/"+id+"/visibility", token, req, nil)
}

// Ratings returns the confirmed counts plus the caller's own rating, the
// baseline every optimistic toggle reconciles against.
func (c *Client) Ratings(ctx context.Context, token, id string) (*models.Ratings, error) {
	var ratings models.Ratings
	if err := c.do(ctx, http.MethodGet, "/api/playlists/"+id+"/ratings", token, nil, &ratings); err != nil {
		return nil, err
	}

	return &ratings, nil
}

// Rate sets or switches the caller's rating. The backend folds a like/dislike
// switch into one update, so a single call never leaves both counters moved
// independently.
func (c *Client) Rate(ctx context.Context, token, id, kind string) error {
	req := models.RatingRequest{Type: kind}
	return c.do(ctx, http.MethodPost, "/api/playlists/"+id+"/ratings", token, req, nil)
}

func (c *Client) Unrate(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/playlists/"+id+"/ratings", token, nil, nil)
}

// Report files a moderation report. Reason must be validated by the caller;
// the client refuses blank reasons without touching the network.
func (c *Client) Report(ctx context.Context, token, id, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return models.ErrEmptyReason
	}

	req := models.ReportRequest{Reason: reason}
	return c.do(ctx, http.MethodPost, "/api/playlists/"+id+"/report", token, req, nil)
}

// ImportSpotify asks the backend to pull a Spotify playlist into the
// caller's account. The URL shape is checked locally first, the way the
// import form does, so malformed input never costs a round trip.
func (c *Client) ImportSpotify(ctx context.Context, token, playlistURL string, public bool) (*models.ImportResult, error) {
	if !strings.Contains(playlistURL, "spotify.com/playlist/") {
		return nil, models.ErrInvalidSpotifyURL
	}

	req := models.SpotifyImportRequest{PlaylistURL: playlistURL, IsPublic: public}

	var result models.ImportResult
	if err := c.do(ctx, http.MethodPost, "/api/playlists/import-spotify", token, req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}
