package app

import (
	"github.com/JP-N/mumundo-web/models"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

// sessionID returns the stable identifier for this browser session, minting
// one on first contact. The credential itself never lives in the cookie; the
// cookie only names the redis slot that holds it.
func (app *Application) sessionID(c echo.Context) (string, error) {
	session := c.Get("session").(*sessions.Session)

	id, ok := session.Values["session_id"].(string)
	if ok && id != "" {
		return id, nil
	}

	id = uuid.NewString()
	session.Values["session_id"] = id
	if err := session.Save(c.Request(), c.Response()); err != nil {
		return "", err
	}

	return id, nil
}

func (app *Application) alreadyLoggedIn(c echo.Context) bool {
	id, err := app.sessionID(c)
	if err != nil {
		return false
	}

	return app.Sessions.IsAuthenticated(c.Request().Context(), id)
}

// credential reads the bearer token for this session; "" means signed out.
func (app *Application) credential(c echo.Context) (string, error) {
	id, err := app.sessionID(c)
	if err != nil {
		return "", err
	}

	return app.Sessions.Credential(c.Request().Context(), id)
}

func setSession(c echo.Context, keyValues map[string]any) error {
	session := c.Get("session").(*sessions.Session)
	for k, v := range keyValues {
		session.Values[k] = v
	}

	return session.Save(c.Request(), c.Response())
}

func getContext(c echo.Context, key string) (string, error) {
	session := c.Get("session").(*sessions.Session)
	v, ok := session.Values[key]
	if !ok {
		return "", models.ErrInvalidRequest
	}

	return v.(string), nil
}

func deleteFromSession(c echo.Context, keys []string) error {
	session := c.Get("session").(*sessions.Session)

	for _, k := range keys {
		delete(session.Values, k)
	}

	return session.Save(c.Request(), c.Response())
}

// setFlash queues a one-shot message rendered by the next page load.
func setFlash(c echo.Context, msg string) {
	_ = setSession(c, map[string]any{"flash": msg})
}

func popFlash(c echo.Context) string {
	session := c.Get("session").(*sessions.Session)
	msg, ok := session.Values["flash"].(string)
	if !ok {
		return ""
	}

	delete(session.Values, "flash")
	_ = session.Save(c.Request(), c.Response())

	return msg
}
