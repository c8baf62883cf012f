package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/JP-N/mumundo-web/models"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// HandleSpotifyLink starts the OAuth dance, keeping the state nonce in the
// cookie session for the callback to verify.
func (app *Application) HandleSpotifyLink(c echo.Context) error {
	state := uuid.NewString()

	if err := setSession(c, map[string]any{"state": state}); err != nil {
		c.Logger().Error(err)
		return err
	}

	return c.Redirect(http.StatusSeeOther, app.Authenticator.AuthURL(state))
}

// HandleSpotifyCallback exchanges the authorization code and files the token
// under this session. The linkage belongs to the session, not the cookie:
// signing out severs it.
func (app *Application) HandleSpotifyCallback(c echo.Context) error {
	defer func() {
		if err := deleteFromSession(c, []string{"state"}); err != nil {
			c.Logger().Error(err)
		}
	}()

	state, err := getContext(c, "state")
	if err != nil {
		c.Logger().Error(err)
		return echo.NewHTTPError(http.StatusBadRequest, models.ErrInvalidRequest)
	}

	if c.FormValue("state") != state {
		return echo.NewHTTPError(http.StatusNotFound, models.ErrStateMismatch)
	}

	token, err := app.Authenticator.Token(c.Request().Context(), state, c.Request())
	if err != nil {
		c.Logger().Error(err)
		return err
	}

	id, err := app.sessionID(c)
	if err != nil {
		c.Logger().Error(err)
		return err
	}

	if err := app.TokenStore.Save(c.Request().Context(), id, token); err != nil {
		c.Logger().Error(err)
		return err
	}

	setFlash(c, "Spotify account linked")
	return c.Redirect(http.StatusSeeOther, "/profile?spotify=success")
}

// HandleSpotifyPlaylists lists the linked account's playlists so the user can
// pick one to import. Runs behind UpdateSpotifyTokenIfExpired.
func (app *Application) HandleSpotifyPlaylists(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := app.sessionID(c)
	if err != nil {
		return err
	}

	token, err := app.TokenStore.Get(ctx, id)
	if err != nil {
		c.Logger().Error(err)
		return err
	}

	if token == nil {
		setFlash(c, models.ErrSpotifyNotLinked.Error())
		return c.Redirect(http.StatusFound, "/profile")
	}

	sc := spotify.New(app.Authenticator.Client(ctx, token))

	page, err := sc.CurrentUsersPlaylists(ctx)
	if err != nil {
		c.Logger().Error(err)
		setFlash(c, "Failed to load your Spotify playlists")
		return c.Redirect(http.StatusFound, "/profile")
	}

	if err := app.updateTokenFromClientIfNeeded(ctx, token, sc, id); err != nil {
		c.Logger().Error(err)
	}

	// Playlists already imported into Mumundo are marked so the user does
	// not import one twice.
	imported := make(map[string]bool)
	if bearer, err := app.credential(c); err == nil && bearer != "" {
		selected, err := app.API.SelectedPlaylists(ctx, bearer)
		if err != nil {
			c.Logger().Error(err)
		}
		for _, s := range selected {
			imported[s.Name] = true
		}
	}

	type item struct {
		Name       string
		TrackCount int
		URL        string
		Imported   bool
	}

	items := make([]item, 0, len(page.Playlists))
	for _, p := range page.Playlists {
		items = append(items, item{
			Name:       p.Name,
			TrackCount: int(p.Tracks.Total),
			URL:        p.ExternalURLs["spotify"],
			Imported:   imported[p.Name],
		})
	}

	return c.Render(http.StatusOK, "spotify_playlists.html", map[string]any{
		"Playlists": items,
		"Flash":     popFlash(c),
	})
}

// HandleSpotifyImport forwards the chosen playlist URL to the backend, which
// pulls the tracks. The URL is validated before the call goes out.
func (app *Application) HandleSpotifyImport(c echo.Context) error {
	playlistURL := c.FormValue("playlist_url")
	public := c.FormValue("is_public") == "on" || c.FormValue("is_public") == "true"

	token, err := app.credential(c)
	if err != nil {
		return err
	}

	result, err := app.API.ImportSpotify(c.Request().Context(), token, playlistURL, public)
	if err != nil {
		if errors.Is(err, models.ErrInvalidSpotifyURL) {
			setFlash(c, err.Error())
			return c.Redirect(http.StatusSeeOther, "/profile")
		}
		if errors.Is(err, models.ErrUnauthorized) {
			return err
		}
		if errors.Is(err, models.ErrNotFound) {
			setFlash(c, "Playlist not found on Spotify")
			return c.Redirect(http.StatusSeeOther, "/profile")
		}
		c.Logger().Error(err)
		setFlash(c, "Failed to import playlist")
		return c.Redirect(http.StatusSeeOther, "/profile")
	}

	setFlash(c, "Successfully imported \""+result.Title+"\"")
	return c.Redirect(http.StatusSeeOther, "/profile")
}

// updateTokenFromClientIfNeeded persists a token the spotify client silently
// refreshed during a call, so the stored copy stays current.
func (app *Application) updateTokenFromClientIfNeeded(ctx context.Context, token *oauth2.Token, client *spotify.Client, sessionID string) error {
	updated, err := client.Token()
	if err != nil {
		return err
	}

	if updated.AccessToken != token.AccessToken {
		return app.TokenStore.Update(ctx, sessionID, updated)
	}

	return nil
}
