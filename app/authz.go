package app

import (
	"github.com/JP-N/mumundo-web/models"
	"github.com/labstack/echo/v4"
)

// Authorization is the resolved identity for one navigation: who the user is
// and whether they hold elevated rights. It is derived from a fresh profile
// fetch, cached on the request context only, and thrown away with it.
type Authorization struct {
	UserID   string
	Username string
	Email    string
	IsAdmin  bool
}

func (a *Authorization) IsOwner(resourceOwnerID string) bool {
	return a != nil && resourceOwnerID != "" && a.UserID == resourceOwnerID
}

// resolveAuthorization fetches the profile once per request. Repeated calls
// within the same navigation reuse the cached result, so a page that checks
// admin and owner status does not pay for two fetches. A 401/403 surfaces as
// models.ErrUnauthorized / ErrForbidden for the gate to handle, never as a
// generic error.
func (app *Application) resolveAuthorization(c echo.Context) (*Authorization, error) {
	if cached, ok := c.Get("authz").(*Authorization); ok {
		return cached, nil
	}

	token, err := app.credential(c)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, models.ErrUnauthorized
	}

	user, err := app.API.Profile(c.Request().Context(), token)
	if err != nil {
		return nil, err
	}

	authz := &Authorization{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsAdmin:  user.IsAdmin,
	}
	c.Set("authz", authz)

	return authz, nil
}
