package app

import (
	"errors"
	"net/http"

	"github.com/JP-N/mumundo-web/models"
	"github.com/labstack/echo/v4"
)

func (app *Application) CreateSessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := app.CookieStore.Get(c.Request(), "session")
		if err != nil {
			c.Logger().Error(err)
			return err
		}

		c.Set("session", session)

		return next(c)
	}
}

// RedirectIfAuthenticated keeps signed-in users off the login page.
func (app *Application) RedirectIfAuthenticated(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if app.alreadyLoggedIn(c) {
			return c.Redirect(http.StatusFound, "/")
		}
		return next(c)
	}
}

// RequireSession is the auth gate: protected pages render only when a
// credential is present, everything else bounces to the login view.
func (app *Application) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !app.alreadyLoggedIn(c) {
			return c.Redirect(http.StatusFound, "/login")
		}
		return next(c)
	}
}

// ClearOnUnauthorized catches backend rejections of a locally-present
// credential. A 401/403 from any authenticated call takes the same
// clear-and-redirect path as an explicit logout, so stale tokens can never
// wedge a view and authorization failures never surface as generic errors.
func (app *Application) ClearOnUnauthorized(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err == nil {
			return nil
		}

		if errors.Is(err, models.ErrUnauthorized) || errors.Is(err, models.ErrForbidden) {
			if id, serr := app.sessionID(c); serr == nil {
				if cerr := app.Sessions.ClearCredential(c.Request().Context(), id); cerr != nil {
					c.Logger().Error(cerr)
				}
			}
			return c.Redirect(http.StatusFound, "/login")
		}

		return err
	}
}

// UpdateSpotifyTokenIfExpired refreshes the linked account's OAuth token
// before handlers that talk to Spotify.
func (app *Application) UpdateSpotifyTokenIfExpired(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := app.sessionID(c)
		if err != nil {
			c.Logger().Error(err)
			return err
		}

		token, err := app.TokenStore.Get(c.Request().Context(), id)
		if err != nil {
			c.Logger().Error(err)
			return err
		}

		if token == nil {
			setFlash(c, models.ErrSpotifyNotLinked.Error())
			return c.Redirect(http.StatusFound, "/profile")
		}

		checkedToken, err := app.Authenticator.RefreshToken(c.Request().Context(), token)
		if err != nil {
			c.Logger().Error(err)
			return err
		}

		if checkedToken.AccessToken != token.AccessToken {
			if err := app.TokenStore.Update(c.Request().Context(), id, checkedToken); err != nil {
				c.Logger().Error(err)
				return err
			}
		}

		return next(c)
	}
}
