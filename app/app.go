package app

import (
	"fmt"
	"os"

	"github.com/JP-N/mumundo-web/client"
	"github.com/JP-N/mumundo-web/session"
	"github.com/JP-N/mumundo-web/store"
	"github.com/charmbracelet/log"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/sessions"
	"github.com/gorilla/websocket"
	"net/http"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
)

// credentialTTL bounds how long a signed-in session survives without a fresh
// login. The backend token expires on its own schedule; this only caps the
// local copy.
const credentialTTL = 24 * time.Hour

type Application struct {
	CookieStore *sessions.CookieStore

	API      *client.Client
	Sessions *session.Manager

	SpotifyRedirectPath string
	Authenticator       *spotifyauth.Authenticator
	TokenStore          store.TokenStore

	Hub    *Hub
	Logger *log.Logger

	Upgrader websocket.Upgrader

	views *viewRegistry
}

func NewApplication() (*Application, error) {
	apiBase := os.Getenv("API_BASE_URL")
	if apiBase == "" {
		return nil, fmt.Errorf("API_BASE_URL not set")
	}

	rc := createRedisClient()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "mumundo-web"})

	broker := session.NewBroker(rc, "session-events")
	manager := session.NewManager(
		session.NewCredentialStore(rc, "credentials", credentialTTL),
		broker,
	)

	app := &Application{
		CookieStore: sessions.NewCookieStore([]byte(os.Getenv("SECRET"))),

		API: client.New(apiBase,
			client.WithRateLimit(20, 40),
			client.WithLogger(logger.With("component", "client")),
		),
		Sessions: manager,

		SpotifyRedirectPath: os.Getenv("REDIRECT_PATH"),
		Authenticator: spotifyauth.New(
			spotifyauth.WithRedirectURL(fmt.Sprintf("http://%s%s", os.Getenv("ADDR"), os.Getenv("REDIRECT_PATH"))),
			spotifyauth.WithScopes(spotifyauth.ScopePlaylistReadPrivate),
			spotifyauth.WithClientID(os.Getenv("CLIENT_ID")),
			spotifyauth.WithClientSecret(os.Getenv("CLIENT_SECRET")),
		),
		TokenStore: store.NewTokenStore(rc, "oauth_tokens"),

		Hub:    NewHub(),
		Logger: logger,

		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},

		views: newViewRegistry(),
	}

	// Open pages converge on session transitions without a reload, and a
	// signed-out session drops its view state everywhere.
	broker.Subscribe(func(e session.Event) {
		app.Hub.Broadcast(e)
		if e.Type == session.EventLogout {
			app.views.Drop(e.SessionID)
		}
	})

	return app, nil
}

func createRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_ADDRESS"),
		PoolSize: 10,
	})
}
