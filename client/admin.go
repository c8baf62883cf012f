package client

import (
	"context"
	"net/http"

	"github.com/JP-N/mumundo-web/models"
)

// Reports lists every filed report for the moderation dashboard. Requires an
// admin token; a non-admin caller gets models.ErrForbidden.
func (c *Client) Reports(ctx context.Context, token string) ([]models.Report, error) {
	var reports []models.Report
	if err := c.do(ctx, http.MethodGet, "/api/admin/reports", token, nil, &reports); err != nil {
		return nil, err
	}

	return reports, nil
}

// DismissReport resolves a pending report without touching the playlist.
func (c *Client) DismissReport(ctx context.Context, token, reportID string) error {
	return c.do(ctx, http.MethodPost, "/api/admin/reports/"+reportID+"/dismiss", token, nil, nil)
}

// DeleteReported removes the reported playlist and marks the report reviewed.
func (c *Client) DeleteReported(ctx context.Context, token, reportID string) error {
	return c.do(ctx, http.MethodPost, "/api/admin/reports/"+reportID+"/delete", token, nil, nil)
}
