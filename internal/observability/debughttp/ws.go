package debughttp

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"nutricare/internal/history"
	logx "nutricare/pkg/logx"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
	// The debug server is loopback or token guarded; allow any origin so
	// local dashboards can connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// historyWS streams the full history on connect and again after every
// mutation. Only the latest list is kept for a slow client.
func (h *handler) historyWS(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		notImplemented(w, r)
		return
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", logx.Err(err))
		return
	}
	defer ws.Close()

	updates := make(chan []history.Item, 1)
	unsub := h.deps.History.Subscribe(func(items []history.Item) {
		// Runs under the store lock: never block.
		select {
		case updates <- items:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- items:
			default:
			}
		}
	})
	defer unsub()

	// Reader: handles pongs and notices the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		ws.SetReadLimit(512)
		_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
		ws.SetPongHandler(func(string) error { return ws.SetReadDeadline(time.Now().Add(wsPongWait)) })
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(items []history.Item) bool {
		_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := ws.WriteJSON(h.snapshot(items)); err != nil {
			h.log.Debug("websocket write failed", logx.Err(err))
			return false
		}
		return true
	}
	if !send(h.deps.History.ReadAll(r.Context())) {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
			return
		case <-gone:
			return
		case items := <-updates:
			if !send(items) {
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
