package app

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/JP-N/mumundo-web/session"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Hub pushes session events to the browser tabs of the session they belong
// to. It is the cross-tab storage-notification analogue: a logout in one tab
// reaches that user's other open pages without a reload, and nobody else's.
type Hub struct {
	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*websocket.Conn]bool)}
}

func (h *Hub) register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	tabs, ok := h.conns[sessionID]
	if !ok {
		tabs = make(map[*websocket.Conn]bool)
		h.conns[sessionID] = tabs
	}
	tabs[conn] = true
	h.mu.Unlock()
}

func (h *Hub) unregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	if tabs, ok := h.conns[sessionID]; ok {
		delete(tabs, conn)
		if len(tabs) == 0 {
			delete(h.conns, sessionID)
		}
	}
	h.mu.Unlock()
	conn.Close()
}

// frame is what goes over the wire: only the event type. Session identifiers
// stay server-side.
type frame struct {
	Type session.EventType `json:"type"`
}

// Broadcast fans an event out to the tabs of the session it concerns. Dead
// connections are dropped on write failure.
func (h *Hub) Broadcast(e session.Event) {
	data, err := json.Marshal(frame{Type: e.Type})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	tabs, ok := h.conns[e.SessionID]
	if !ok {
		return
	}

	for conn := range tabs {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			delete(tabs, conn)
			conn.Close()
		}
	}
	if len(tabs) == 0 {
		delete(h.conns, e.SessionID)
	}
}

// HandleSocket upgrades the request and parks the connection in the hub under
// the caller's session. The read loop exists only to notice the tab going
// away.
func (app *Application) HandleSocket(c echo.Context) error {
	id, err := app.sessionID(c)
	if err != nil {
		c.Logger().Error(err)
		return err
	}

	conn, err := app.Upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		c.Logger().Error(err)
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	app.Hub.register(id, conn)

	go func() {
		defer app.Hub.unregister(id, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}
