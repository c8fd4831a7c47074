package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type WSHandler struct {
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

// NewWSHandler accepts upgrades only from allowedOrigins; an empty list
// allows same-host requests only (gorilla's default check).
func NewWSHandler(allowedOrigins []string, l *logrus.Logger) *WSHandler {
	up := websocket.Upgrader{}
	if len(allowedOrigins) > 0 {
		allow := map[string]struct{}{}
		for _, o := range allowedOrigins {
			allow[o] = struct{}{}
		}
		up.CheckOrigin = func(r *http.Request) bool {
			_, ok := allow[r.Header.Get("Origin")]
			return ok
		}
	}
	if l == nil {
		l = logrus.New()
	}
	return &WSHandler{upgrader: up, log: l.WithField("component", "ws")}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) write(typ int, b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(typ, b)
}

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
)

// Notifications pushes the client's notification show/clear events.
func (h *WSHandler) Notifications(c *gin.Context) {
	w, ok := requireWorkspace(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrader already wrote the response
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	events, cancel := w.Notifications.Subscribe()
	defer cancel()

	// the current notification first, so a fresh page is in sync
	if n := w.Notifications.Current(); n != nil {
		b, _ := json.Marshal(gin.H{"type": "show", "notification": n})
		if err := wc.write(websocket.TextMessage, b); err != nil {
			return
		}
	}

	// reader only watches for close and keeps the read deadline fresh
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-readDone:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			if err := wc.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				// workspace closed
				_ = wc.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				h.log.WithError(err).Warn("marshal notification event")
				continue
			}
			if err := wc.write(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}
}
