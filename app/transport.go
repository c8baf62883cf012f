package app

import (
	"errors"
	"io"
	"net/http"
	"regexp"

	"github.com/JP-N/mumundo-web/models"
	"github.com/JP-N/mumundo-web/view"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func (app *Application) Router() *echo.Echo {
	e := echo.New()

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(app.CreateSessionMiddleware)
	e.Renderer = NewTemplateRegistry("web/templates/*.html")
	e.Static("/assets", "./public")

	e.GET("/", app.HandleHome)
	e.GET("/login", app.HandleAuthPage, app.RedirectIfAuthenticated)
	e.POST("/login", app.HandleLogin, app.RedirectIfAuthenticated)
	e.POST("/register", app.HandleRegister, app.RedirectIfAuthenticated)
	e.POST("/logout", app.HandleLogout)

	e.GET("/playlists", app.HandlePublicPlaylists)

	e.GET("/playlist/:id", app.HandlePlaylistDetail, app.RequireSession, app.ClearOnUnauthorized)
	e.POST("/playlist/:id/rate", app.HandleRate, app.RequireSession, app.ClearOnUnauthorized)
	e.POST("/playlist/:id/report", app.HandleReport, app.RequireSession, app.ClearOnUnauthorized)
	e.POST("/playlist/:id/delete", app.HandleDeletePlaylist, app.RequireSession, app.ClearOnUnauthorized)
	e.POST("/playlist/:id/visibility", app.HandleVisibility, app.RequireSession, app.ClearOnUnauthorized)

	e.GET("/profile", app.HandleProfile, app.RequireSession, app.ClearOnUnauthorized)
	e.POST("/profile", app.HandleProfileUpdate, app.RequireSession, app.ClearOnUnauthorized)

	e.GET("/admin", app.HandleAdminDashboard, app.RequireSession, app.ClearOnUnauthorized)
	e.POST("/admin/reports/:id/:action", app.HandleReportAction, app.RequireSession, app.ClearOnUnauthorized)

	e.GET("/spotify/link", app.HandleSpotifyLink, app.RequireSession)
	e.GET(app.SpotifyRedirectPath, app.HandleSpotifyCallback)
	e.GET("/spotify/playlists", app.HandleSpotifyPlaylists, app.RequireSession, app.UpdateSpotifyTokenIfExpired)
	e.POST("/spotify/import", app.HandleSpotifyImport, app.RequireSession, app.ClearOnUnauthorized)

	e.GET("/ws", app.HandleSocket)

	return e
}

// HandleHome verifies a stored credential against the backend before
// claiming the visitor is signed in. A token the server rejects is cleared on
// the spot, exactly as if the user had signed out.
func (app *Application) HandleHome(c echo.Context) error {
	id, err := app.sessionID(c)
	if err != nil {
		c.Logger().Error(err)
		return err
	}

	authenticated := false
	ctx := c.Request().Context()

	if token, err := app.Sessions.Credential(ctx, id); err == nil && token != "" {
		if _, err := app.API.Me(ctx, token); err == nil {
			authenticated = true
		} else if errors.Is(err, models.ErrUnauthorized) {
			if cerr := app.Sessions.ClearCredential(ctx, id); cerr != nil {
				c.Logger().Error(cerr)
			}
		} else {
			c.Logger().Error(err)
		}
	}

	return c.Render(http.StatusOK, "home.html", map[string]any{
		"IsAuthenticated": authenticated,
		"Flash":           popFlash(c),
	})
}

func (app *Application) HandleAuthPage(c echo.Context) error {
	mode := c.QueryParam("mode")
	if mode != "signup" {
		mode = "login"
	}

	return c.Render(http.StatusOK, "login.html", map[string]any{"Mode": mode})
}

func (app *Application) HandleLogin(c echo.Context) error {
	email := c.FormValue("email")
	password := c.FormValue("password")

	if msg := validateLogin(email, password); msg != "" {
		return c.Render(http.StatusBadRequest, "login.html", map[string]any{
			"Mode": "login", "Error": msg, "Email": email,
		})
	}

	token, err := app.API.Login(c.Request().Context(), models.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) || errors.Is(err, models.ErrValidation) {
			return c.Render(http.StatusUnauthorized, "login.html", map[string]any{
				"Mode": "login", "Error": "Invalid credentials", "Email": email,
			})
		}
		c.Logger().Error(err)
		return c.Render(http.StatusOK, "login.html", map[string]any{
			"Mode": "login", "Error": "An error occurred. Please try again.", "Email": email,
		})
	}

	id, err := app.sessionID(c)
	if err != nil {
		c.Logger().Error(err)
		return err
	}

	if err := app.Sessions.SetCredential(c.Request().Context(), id, token); err != nil {
		c.Logger().Error(err)
		return err
	}

	return c.Redirect(http.StatusSeeOther, "/")
}

func (app *Application) HandleRegister(c echo.Context) error {
	email := c.FormValue("email")
	username := c.FormValue("username")
	password := c.FormValue("password")
	confirm := c.FormValue("confirm_password")

	if msg := validateRegistration(email, username, password, confirm); msg != "" {
		return c.Render(http.StatusBadRequest, "login.html", map[string]any{
			"Mode": "signup", "Error": msg, "Email": email, "Username": username,
		})
	}

	token, err := app.API.Register(c.Request().Context(), models.RegisterRequest{
		Email:    email,
		Username: username,
		Password: password,
	})
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return c.Render(http.StatusBadRequest, "login.html", map[string]any{
				"Mode": "signup", "Error": err.Error(), "Email": email, "Username": username,
			})
		}
		c.Logger().Error(err)
		return c.Render(http.StatusOK, "login.html", map[string]any{
			"Mode": "signup", "Error": "An error occurred. Please try again.", "Email": email, "Username": username,
		})
	}

	id, err := app.sessionID(c)
	if err != nil {
		c.Logger().Error(err)
		return err
	}

	if err := app.Sessions.SetCredential(c.Request().Context(), id, token); err != nil {
		c.Logger().Error(err)
		return err
	}

	return c.Redirect(http.StatusSeeOther, "/")
}

func (app *Application) HandleLogout(c echo.Context) error {
	id, err := app.sessionID(c)
	if err != nil {
		c.Logger().Error(err)
		return err
	}

	if err := app.Sessions.ClearCredential(c.Request().Context(), id); err != nil {
		c.Logger().Error(err)
	}

	if err := deleteFromSession(c, []string{"state"}); err != nil {
		c.Logger().Error(err)
	}

	return c.Redirect(http.StatusFound, "/")
}

// validateLogin and validateRegistration block submission locally; a form
// that fails here never costs a network call.
func validateLogin(email, password string) string {
	if email == "" || password == "" {
		return models.ErrMissingFields.Error()
	}
	if !emailRE.MatchString(email) {
		return models.ErrInvalidEmail.Error()
	}
	return ""
}

func validateRegistration(email, username, password, confirm string) string {
	if email == "" || username == "" || password == "" {
		return models.ErrMissingFields.Error()
	}
	if password != confirm {
		return models.ErrPasswordMismatch.Error()
	}
	if !emailRE.MatchString(email) {
		return models.ErrInvalidEmail.Error()
	}
	return ""
}

func (app *Application) HandlePublicPlaylists(c echo.Context) error {
	token, err := app.credential(c)
	if err != nil {
		c.Logger().Error(err)
	}

	playlists, err := app.API.PublicPlaylists(c.Request().Context(), token)
	if err != nil {
		c.Logger().Error(err)
		return c.Render(http.StatusOK, "playlists.html", map[string]any{
			"Error": "Failed to load public playlists",
		})
	}

	return c.Render(http.StatusOK, "playlists.html", map[string]any{
		"Playlists":       playlists,
		"IsAuthenticated": token != "",
		"Flash":           popFlash(c),
	})
}

// HandlePlaylistDetail fetches the playlist, resolves authorization, then
// reads the caller's rating, in that order. The rating control is rebuilt
// from the confirmed server counts on every visit.
func (app *Application) HandlePlaylistDetail(c echo.Context) error {
	playlistID := c.Param("id")
	ctx := c.Request().Context()

	token, err := app.credential(c)
	if err != nil {
		c.Logger().Error(err)
		return err
	}

	playlist, err := app.API.Playlist(ctx, token, playlistID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.Render(http.StatusNotFound, "notfound.html", map[string]any{
				"Message":  "Playlist not found",
				"BackLink": "/playlists",
			})
		}
		return err
	}

	authz, err := app.resolveAuthorization(c)
	if err != nil {
		return err
	}

	ratings, err := app.API.Ratings(ctx, token, playlistID)
	if err != nil {
		return err
	}

	id, err := app.sessionID(c)
	if err != nil {
		return err
	}
	ctl := app.views.page(id).BindPlaylist(playlistID, ratings)

	likes, dislikes := ctl.Counts()

	return c.Render(http.StatusOK, "playlist.html", map[string]any{
		"Playlist":   playlist,
		"Likes":      likes,
		"Dislikes":   dislikes,
		"UserRating": ctl.Rating(),
		"IsOwner":    authz.IsOwner(playlist.User.ID),
		"IsAdmin":    authz.IsAdmin,
		"Flash":      popFlash(c),
	})
}

// HandleRate drives the optimistic toggle: mutate locally, call the backend,
// settle. The response carries the control's view of the counts so the page
// can update in place.
func (app *Application) HandleRate(c echo.Context) error {
	playlistID := c.Param("id")
	kind := c.FormValue("type")
	ctx := c.Request().Context()

	token, err := app.credential(c)
	if err != nil {
		return err
	}

	id, err := app.sessionID(c)
	if err != nil {
		return err
	}

	ps := app.views.page(id)
	ctl := ps.Rating(playlistID)
	if ctl == nil {
		// Direct POST without a prior page view: seed from the server.
		ratings, err := app.API.Ratings(ctx, token, playlistID)
		if err != nil {
			return err
		}
		ctl = ps.BindPlaylist(playlistID, ratings)
	}

	pending, err := ctl.Begin(kind)
	if err != nil {
		if errors.Is(err, view.ErrToggleBusy) {
			return echo.NewHTTPError(http.StatusConflict, err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	var callErr error
	if pending.Action == view.ActionClear {
		callErr = app.API.Unrate(ctx, token, playlistID)
	} else {
		callErr = app.API.Rate(ctx, token, playlistID, kind)
	}
	pending.Resolve(callErr)

	if callErr != nil {
		if errors.Is(callErr, models.ErrUnauthorized) {
			return callErr
		}
		c.Logger().Error(callErr)
	}

	likes, dislikes := ctl.Counts()
	resp := map[string]any{
		"likes":    likes,
		"dislikes": dislikes,
		"rating":   ctl.Rating(),
	}
	if callErr != nil {
		resp["error"] = "Failed to rate playlist"
		return c.JSON(http.StatusBadGateway, resp)
	}

	return c.JSON(http.StatusOK, resp)
}

func (app *Application) HandleReport(c echo.Context) error {
	playlistID := c.Param("id")
	reason := c.FormValue("reason")

	if err := view.ValidateReason(reason); err != nil {
		setFlash(c, err.Error())
		return c.Redirect(http.StatusSeeOther, "/playlist/"+playlistID)
	}

	token, err := app.credential(c)
	if err != nil {
		return err
	}

	if err := app.API.Report(c.Request().Context(), token, playlistID, reason); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			return err
		}
		c.Logger().Error(err)
		setFlash(c, "Failed to submit report")
		return c.Redirect(http.StatusSeeOther, "/playlist/"+playlistID)
	}

	setFlash(c, "Thank you for your report")
	return c.Redirect(http.StatusSeeOther, "/playlist/"+playlistID)
}

func (app *Application) HandleDeletePlaylist(c echo.Context) error {
	playlistID := c.Param("id")

	token, err := app.credential(c)
	if err != nil {
		return err
	}

	if err := app.API.DeletePlaylist(c.Request().Context(), token, playlistID); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			return err
		}
		if errors.Is(err, models.ErrForbidden) {
			setFlash(c, "You don't have permission to delete this playlist")
			return c.Redirect(http.StatusSeeOther, "/playlist/"+playlistID)
		}
		c.Logger().Error(err)
		setFlash(c, "Failed to delete playlist")
		return c.Redirect(http.StatusSeeOther, "/playlist/"+playlistID)
	}

	return c.Redirect(http.StatusSeeOther, "/playlists")
}

// HandleVisibility toggles a playlist between public and private with the
// same optimistic discipline as ratings: the flag flips immediately and a
// failed request puts it back.
func (app *Application) HandleVisibility(c echo.Context) error {
	playlistID := c.Param("id")
	ctx := c.Request().Context()

	token, err := app.credential(c)
	if err != nil {
		return err
	}

	id, err := app.sessionID(c)
	if err != nil {
		return err
	}

	current := c.FormValue("is_public") == "true"
	vt := app.views.page(id).Visibility(playlistID, current)

	pending, err := vt.Begin()
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err)
	}

	callErr := app.API.SetVisibility(ctx, token, playlistID, pending.Target)
	pending.Resolve(callErr)

	if callErr != nil {
		if errors.Is(callErr, models.ErrUnauthorized) {
			return callErr
		}
		c.Logger().Error(callErr)
		return c.JSON(http.StatusBadGateway, map[string]any{
			"isPublic": vt.IsPublic(),
			"error":    "Failed to update playlist visibility",
		})
	}

	return c.JSON(http.StatusOK, map[string]any{"isPublic": vt.IsPublic()})
}

func (app *Application) HandleProfile(c echo.Context) error {
	ctx := c.Request().Context()

	authz, err := app.resolveAuthorization(c)
	if err != nil {
		return err
	}

	token, err := app.credential(c)
	if err != nil {
		return err
	}

	// Dependent fetches only fire once the profile resolved.
	playlists, err := app.API.UserPlaylists(ctx, token)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		if errors.Is(err, models.ErrUnauthorized) {
			return err
		}
		c.Logger().Error(err)
	}

	id, err := app.sessionID(c)
	if err != nil {
		return err
	}

	spotifyToken, err := app.TokenStore.Get(ctx, id)
	if err != nil {
		c.Logger().Error(err)
	}

	return c.Render(http.StatusOK, "profile.html", map[string]any{
		"User":          authz,
		"IsAdmin":       authz.IsAdmin,
		"Playlists":     playlists,
		"SpotifyLinked": spotifyToken != nil,
		"Flash":         popFlash(c),
	})
}

func (app *Application) HandleProfileUpdate(c echo.Context) error {
	username := c.FormValue("username")
	if username == "" {
		setFlash(c, models.ErrMissingFields.Error())
		return c.Redirect(http.StatusSeeOther, "/profile")
	}

	token, err := app.credential(c)
	if err != nil {
		return err
	}

	var pictureName string
	var picture io.Reader

	if fh, err := c.FormFile("profile_picture"); err == nil && fh != nil {
		f, err := fh.Open()
		if err != nil {
			c.Logger().Error(err)
			setFlash(c, "Failed to read profile picture")
			return c.Redirect(http.StatusSeeOther, "/profile")
		}
		defer f.Close()
		picture = f
		pictureName = fh.Filename
	}

	if err := app.API.UpdateProfile(c.Request().Context(), token, username, picture, pictureName); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			return err
		}
		c.Logger().Error(err)
		setFlash(c, "Failed to update profile")
		return c.Redirect(http.StatusSeeOther, "/profile")
	}

	return c.Redirect(http.StatusSeeOther, "/profile")
}

// HandleAdminDashboard resolves authorization first and fetches reports only
// after it succeeds; the two calls are causally dependent, never concurrent.
// A non-admin is sent home, not shown an error.
func (app *Application) HandleAdminDashboard(c echo.Context) error {
	authz, err := app.resolveAuthorization(c)
	if err != nil {
		return err
	}

	if !authz.IsAdmin {
		return c.Redirect(http.StatusFound, "/")
	}

	token, err := app.credential(c)
	if err != nil {
		return err
	}

	reports, err := app.API.Reports(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) || errors.Is(err, models.ErrForbidden) {
			return c.Redirect(http.StatusFound, "/")
		}
		c.Logger().Error(err)
		return c.Render(http.StatusOK, "admin.html", map[string]any{
			"Error": "Failed to load reports",
		})
	}

	id, err := app.sessionID(c)
	if err != nil {
		return err
	}
	app.views.page(id).SetReports(reports)

	pending := 0
	for _, r := range reports {
		if view.CanResolve(r) {
			pending++
		}
	}

	return c.Render(http.StatusOK, "admin.html", map[string]any{
		"Reports": reports,
		"Pending": pending,
		"Flash":   popFlash(c),
	})
}

// HandleReportAction applies dismiss or delete to a pending report. The
// transition is checked against the table the admin is looking at before any
// call goes out; a report already resolved is rejected, never re-applied.
func (app *Application) HandleReportAction(c echo.Context) error {
	reportID := c.Param("id")
	action := c.Param("action")

	if action != "dismiss" && action != "delete" {
		return echo.NewHTTPError(http.StatusBadRequest, models.ErrInvalidRequest)
	}

	authz, err := app.resolveAuthorization(c)
	if err != nil {
		return err
	}
	if !authz.IsAdmin {
		return c.Redirect(http.StatusFound, "/")
	}

	id, err := app.sessionID(c)
	if err != nil {
		return err
	}

	ps := app.views.page(id)
	report, ok := ps.Report(reportID)
	if ok && !view.CanResolve(*report) {
		setFlash(c, view.ErrReportResolved.Error())
		return c.Redirect(http.StatusSeeOther, "/admin")
	}

	token, err := app.credential(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if action == "dismiss" {
		err = app.API.DismissReport(ctx, token, reportID)
	} else {
		err = app.API.DeleteReported(ctx, token, reportID)
	}

	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			return err
		}
		c.Logger().Error(err)
		setFlash(c, "Failed to "+action+" report")
		return c.Redirect(http.StatusSeeOther, "/admin")
	}

	if ok {
		if action == "dismiss" {
			_ = view.Dismiss(report)
		} else {
			_ = view.MarkReviewed(report)
		}
	}

	return c.Redirect(http.StatusSeeOther, "/admin")
}
