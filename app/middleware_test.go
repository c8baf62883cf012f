package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/JP-N/mumundo-web/client"
	"github.com/JP-N/mumundo-web/models"
	"github.com/JP-N/mumundo-web/session"
	"github.com/charmbracelet/log"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

type memoryStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tokens: make(map[string]string)}
}

func (ms *memoryStore) Save(_ context.Context, sessionID, token string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.tokens[sessionID] = token
	return nil
}

func (ms *memoryStore) Get(_ context.Context, sessionID string) (string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.tokens[sessionID], nil
}

func (ms *memoryStore) Delete(_ context.Context, sessionID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.tokens, sessionID)
	return nil
}

func newTestApp(t *testing.T, backend http.HandlerFunc) *Application {
	t.Helper()

	baseURL := ""
	if backend != nil {
		srv := httptest.NewServer(backend)
		t.Cleanup(srv.Close)
		baseURL = srv.URL
	}

	return &Application{
		CookieStore: sessions.NewCookieStore([]byte("test-secret")),
		API:         client.New(baseURL, client.WithLogger(log.New(io.Discard))),
		Sessions:    session.NewManager(newMemoryStore(), session.NewBroker(nil, "")),
		Logger:      log.New(io.Discard),
		views:       newViewRegistry(),
	}
}

// sessionRequest builds a request carrying a session cookie whose session_id
// is already "s1", so tests can place credentials for it beforehand.
func sessionRequest(t *testing.T, app *Application, method, target string, body io.Reader) *http.Request {
	t.Helper()

	seed := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	sess, err := app.CookieStore.Get(seed, "session")
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	sess.Values["session_id"] = "s1"
	if err := sess.Save(seed, rec); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Cookie", rec.Header().Get("Set-Cookie"))
	return req
}

func TestRequireSession(t *testing.T) {
	t.Run("Unauthenticated Redirects To Login", func(t *testing.T) {
		app := newTestApp(t, nil)
		e := echo.New()

		req := sessionRequest(t, app, http.MethodGet, "/profile", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		h := app.CreateSessionMiddleware(app.RequireSession(func(c echo.Context) error {
			t.Error("protected handler must not run")
			return nil
		}))

		if err := h(c); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.Code != http.StatusFound {
			t.Errorf("expected 302, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/login" {
			t.Errorf("expected redirect to /login, got %q", loc)
		}
	})

	t.Run("Authenticated Passes Through", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.Sessions.SetCredential(context.Background(), "s1", "tok-123")
		e := echo.New()

		req := sessionRequest(t, app, http.MethodGet, "/profile", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		var ran bool
		h := app.CreateSessionMiddleware(app.RequireSession(func(c echo.Context) error {
			ran = true
			return c.NoContent(http.StatusOK)
		}))

		if err := h(c); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !ran {
			t.Error("expected protected handler to run")
		}
	})
}

func TestRedirectIfAuthenticated(t *testing.T) {
	app := newTestApp(t, nil)
	app.Sessions.SetCredential(context.Background(), "s1", "tok-123")
	e := echo.New()

	req := sessionRequest(t, app, http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := app.CreateSessionMiddleware(app.RedirectIfAuthenticated(func(c echo.Context) error {
		t.Error("login page must not render for a signed-in session")
		return nil
	}))

	if err := h(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}
}

func TestClearOnUnauthorized(t *testing.T) {
	t.Run("Backend Rejection Clears Credential", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.Sessions.SetCredential(context.Background(), "s1", "tok-stale")
		e := echo.New()

		req := sessionRequest(t, app, http.MethodGet, "/profile", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		h := app.CreateSessionMiddleware(app.ClearOnUnauthorized(func(c echo.Context) error {
			return models.ErrUnauthorized
		}))

		if err := h(c); err != nil {
			t.Fatalf("expected redirect, got error %v", err)
		}
		if loc := rec.Header().Get("Location"); loc != "/login" {
			t.Errorf("expected redirect to /login, got %q", loc)
		}
		if app.Sessions.IsAuthenticated(context.Background(), "s1") {
			t.Error("expected credential cleared after backend rejection")
		}
	})

	t.Run("Forbidden Takes The Same Path", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.Sessions.SetCredential(context.Background(), "s1", "tok-123")
		e := echo.New()

		req := sessionRequest(t, app, http.MethodGet, "/playlist/p1", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		h := app.CreateSessionMiddleware(app.ClearOnUnauthorized(func(c echo.Context) error {
			return fmt.Errorf("%w: admin only", models.ErrForbidden)
		}))

		if err := h(c); err != nil {
			t.Fatalf("expected redirect, got error %v", err)
		}
		if loc := rec.Header().Get("Location"); loc != "/login" {
			t.Errorf("expected redirect to /login, got %q", loc)
		}
		if app.Sessions.IsAuthenticated(context.Background(), "s1") {
			t.Error("expected credential cleared after backend rejection")
		}
	})

	t.Run("Other Errors Pass Through Untouched", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.Sessions.SetCredential(context.Background(), "s1", "tok-123")
		e := echo.New()

		req := sessionRequest(t, app, http.MethodGet, "/profile", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		boom := errors.New("boom")
		h := app.CreateSessionMiddleware(app.ClearOnUnauthorized(func(c echo.Context) error {
			return boom
		}))

		if err := h(c); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if !app.Sessions.IsAuthenticated(context.Background(), "s1") {
			t.Error("expected credential untouched for unrelated errors")
		}
	})
}

func TestHandleRate(t *testing.T) {
	rateForm := func(kind string) (io.Reader, string) {
		return strings.NewReader("type=" + kind), echo.MIMEApplicationForm
	}

	postRate := func(t *testing.T, app *Application, kind string) (*httptest.ResponseRecorder, error) {
		t.Helper()

		body, ctype := rateForm(kind)
		req := sessionRequest(t, app, http.MethodPost, "/playlist/p1/rate", body)
		req.Header.Set(echo.HeaderContentType, ctype)
		rec := httptest.NewRecorder()

		e := echo.New()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("p1")

		return rec, app.CreateSessionMiddleware(app.HandleRate)(c)
	}

	t.Run("Like Then Like Again Nets To Unset", func(t *testing.T) {
		app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodGet && r.URL.Path == "/api/playlists/p1/ratings":
				json.NewEncoder(w).Encode(models.Ratings{Likes: 5, Dislikes: 2})
			case r.URL.Path == "/api/playlists/p1/ratings":
				w.WriteHeader(http.StatusOK)
			default:
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
		})
		app.Sessions.SetCredential(context.Background(), "s1", "tok-123")

		rec, err := postRate(t, app, "like")
		if err != nil {
			t.Fatalf("first rate: %v", err)
		}

		var resp map[string]any
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["likes"].(float64) != 6 || resp["rating"].(string) != "like" {
			t.Errorf("expected likes 6 rating like, got %v", resp)
		}

		rec, err = postRate(t, app, "like")
		if err != nil {
			t.Fatalf("second rate: %v", err)
		}

		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["likes"].(float64) != 5 || resp["rating"].(string) != "" {
			t.Errorf("expected likes back at 5 and no rating, got %v", resp)
		}
	})

	t.Run("Backend Failure Rolls Back And Reports It", func(t *testing.T) {
		app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				json.NewEncoder(w).Encode(models.Ratings{Likes: 5, Dislikes: 2})
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
		})
		app.Sessions.SetCredential(context.Background(), "s1", "tok-123")

		rec, err := postRate(t, app, "dislike")
		if err != nil {
			t.Fatalf("expected JSON response, got error %v", err)
		}
		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}

		var resp map[string]any
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["likes"].(float64) != 5 || resp["dislikes"].(float64) != 2 {
			t.Errorf("expected counts rolled back to 5/2, got %v", resp)
		}
		if resp["error"] == nil {
			t.Error("expected error field in response")
		}
	})

	t.Run("Conflict While A Toggle Is In Flight", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.Sessions.SetCredential(context.Background(), "s1", "tok-123")

		ctl := app.views.page("s1").BindPlaylist("p1", &models.Ratings{Likes: 5})
		if _, err := ctl.Begin("like"); err != nil {
			t.Fatalf("failed to occupy toggle: %v", err)
		}

		_, err := postRate(t, app, "dislike")
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %v", err)
		}
	})

	t.Run("Unknown Kind Rejected", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.Sessions.SetCredential(context.Background(), "s1", "tok-123")
		app.views.page("s1").BindPlaylist("p1", &models.Ratings{})

		_, err := postRate(t, app, "love")
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %v", err)
		}
	})
}

func TestHandleReportAction(t *testing.T) {
	postAction := func(t *testing.T, app *Application, reportID, action string) (*httptest.ResponseRecorder, error) {
		t.Helper()

		req := sessionRequest(t, app, http.MethodPost, "/admin/reports/"+reportID+"/"+action, nil)
		rec := httptest.NewRecorder()

		e := echo.New()
		c := e.NewContext(req, rec)
		c.SetParamNames("id", "action")
		c.SetParamValues(reportID, action)

		return rec, app.CreateSessionMiddleware(app.HandleReportAction)(c)
	}

	t.Run("Resolved Report Is Rejected Without A Backend Call", func(t *testing.T) {
		var adminCalls int
		app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/user/profile" {
				json.NewEncoder(w).Encode(models.User{ID: "u1", IsAdmin: true})
				return
			}
			if strings.HasPrefix(r.URL.Path, "/api/admin/reports/") {
				adminCalls++
			}
			w.WriteHeader(http.StatusOK)
		})
		app.Sessions.SetCredential(context.Background(), "s1", "tok-admin")
		app.views.page("s1").SetReports([]models.Report{{ID: "r1", Status: "dismissed"}})

		rec, err := postAction(t, app, "r1", "dismiss")
		if err != nil {
			t.Fatalf("expected redirect, got error %v", err)
		}
		if loc := rec.Header().Get("Location"); loc != "/admin" {
			t.Errorf("expected redirect to /admin, got %q", loc)
		}
		if adminCalls != 0 {
			t.Errorf("expected no moderation request for a resolved report, got %d", adminCalls)
		}
	})

	t.Run("Pending Report Is Resolved Locally After The Call", func(t *testing.T) {
		var adminCalls int
		app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/user/profile" {
				json.NewEncoder(w).Encode(models.User{ID: "u1", IsAdmin: true})
				return
			}
			if r.URL.Path == "/api/admin/reports/r1/dismiss" {
				adminCalls++
			}
			w.WriteHeader(http.StatusOK)
		})
		app.Sessions.SetCredential(context.Background(), "s1", "tok-admin")
		ps := app.views.page("s1")
		ps.SetReports([]models.Report{{ID: "r1", Status: "pending"}})

		if _, err := postAction(t, app, "r1", "dismiss"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if adminCalls != 1 {
			t.Errorf("expected one moderation request, got %d", adminCalls)
		}

		report, ok := ps.Report("r1")
		if !ok || report.Status != "dismissed" {
			t.Errorf("expected report dismissed in the admin's table, got %+v", report)
		}
	})

	t.Run("Non-Admin Is Sent Home", func(t *testing.T) {
		app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/user/profile" {
				json.NewEncoder(w).Encode(models.User{ID: "u2"})
				return
			}
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		})
		app.Sessions.SetCredential(context.Background(), "s1", "tok-user")

		rec, err := postAction(t, app, "r1", "dismiss")
		if err != nil {
			t.Fatalf("expected redirect, got error %v", err)
		}
		if loc := rec.Header().Get("Location"); loc != "/" {
			t.Errorf("expected redirect to /, got %q", loc)
		}
	})
}

func TestResolveAuthorization(t *testing.T) {
	t.Run("Fetches Once Per Request", func(t *testing.T) {
		var calls int
		app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			json.NewEncoder(w).Encode(models.User{ID: "u1", Username: "jp", IsAdmin: true})
		})
		app.Sessions.SetCredential(context.Background(), "s1", "tok-123")

		e := echo.New()
		req := sessionRequest(t, app, http.MethodGet, "/playlist/p1", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := app.CreateSessionMiddleware(func(c echo.Context) error {
			first, err := app.resolveAuthorization(c)
			if err != nil {
				return err
			}
			second, err := app.resolveAuthorization(c)
			if err != nil {
				return err
			}
			if first != second {
				t.Error("expected cached authorization on second resolve")
			}
			if !first.IsAdmin || !first.IsOwner("u1") {
				t.Errorf("unexpected authorization %+v", first)
			}
			if first.IsOwner("u2") || first.IsOwner("") {
				t.Error("expected owner check to fail for other users")
			}
			return nil
		})(c)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if calls != 1 {
			t.Errorf("expected one profile fetch, got %d", calls)
		}
	})

	t.Run("Missing Credential Is Unauthorized", func(t *testing.T) {
		app := newTestApp(t, nil)

		e := echo.New()
		req := sessionRequest(t, app, http.MethodGet, "/playlist/p1", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := app.CreateSessionMiddleware(func(c echo.Context) error {
			_, err := app.resolveAuthorization(c)
			return err
		})(c)

		if !errors.Is(err, models.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestValidateForms(t *testing.T) {
	t.Run("Login", func(t *testing.T) {
		cases := []struct {
			name            string
			email, password string
			want            string
		}{
			{"Valid", "jp@example.com", "hunter22", ""},
			{"Missing Email", "", "hunter22", models.ErrMissingFields.Error()},
			{"Missing Password", "jp@example.com", "", models.ErrMissingFields.Error()},
			{"Malformed Email", "not-an-email", "hunter22", models.ErrInvalidEmail.Error()},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if got := validateLogin(tc.email, tc.password); got != tc.want {
					t.Errorf("validateLogin(%q, ...) = %q, want %q", tc.email, got, tc.want)
				}
			})
		}
	})

	t.Run("Registration", func(t *testing.T) {
		cases := []struct {
			name                               string
			email, username, password, confirm string
			want                               string
		}{
			{"Valid", "jp@example.com", "jp", "hunter22", "hunter22", ""},
			{"Missing Username", "jp@example.com", "", "hunter22", "hunter22", models.ErrMissingFields.Error()},
			{"Password Mismatch", "jp@example.com", "jp", "hunter22", "hunter23", models.ErrPasswordMismatch.Error()},
			{"Malformed Email", "jp@", "jp", "hunter22", "hunter22", models.ErrInvalidEmail.Error()},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if got := validateRegistration(tc.email, tc.username, tc.password, tc.confirm); got != tc.want {
					t.Errorf("validateRegistration(%q, ...) = %q, want %q", tc.email, got, tc.want)
				}
			})
		}
	})
}

func TestViewRegistry(t *testing.T) {
	t.Run("Logout Drops Session State", func(t *testing.T) {
		r := newViewRegistry()
		r.page("s1").BindPlaylist("p1", &models.Ratings{Likes: 5})

		r.Drop("s1")

		if ctl := r.page("s1").Rating("p1"); ctl != nil {
			t.Error("expected no rating control after drop")
		}
	})

	t.Run("Navigating Away Invalidates The Old Control", func(t *testing.T) {
		r := newViewRegistry()
		ps := r.page("s1")

		old := ps.BindPlaylist("p1", &models.Ratings{Likes: 5})
		pending, err := old.Begin("like")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		ps.BindPlaylist("p2", &models.Ratings{Likes: 1})

		if pending.Resolve(nil) {
			t.Error("expected in-flight result for the abandoned view to be discarded")
		}
		if ctl := ps.Rating("p1"); ctl != nil {
			t.Error("expected p1 control unbound after navigating to p2")
		}
	})

	t.Run("Report Lookup", func(t *testing.T) {
		r := newViewRegistry()
		ps := r.page("s1")
		ps.SetReports([]models.Report{{ID: "r1", Status: "pending"}})

		if _, ok := ps.Report("r2"); ok {
			t.Error("expected unknown report id to miss")
		}

		report, ok := ps.Report("r1")
		if !ok {
			t.Fatal("expected report found")
		}
		report.Status = "dismissed"

		// Lookup hands back the stored entry, so resolution sticks.
		again, _ := ps.Report("r1")
		if again.Status != "dismissed" {
			t.Errorf("expected mutation visible, got %q", again.Status)
		}
	})
}
