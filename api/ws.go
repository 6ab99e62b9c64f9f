package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Stream pushes the session state on connect and after every change until
// the client goes away.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	var current string
	if c, err := r.Cookie(sessionCookie); err == nil {
		current = c.Value
	}
	id, f, created := h.sessions.GetOrCreate(current)

	header := http.Header{}
	if created {
		header.Add("Set-Cookie", sessionCookieFor(id).String())
	}
	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The reader only notices the close; clients send nothing else.
	done := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		changed := f.Changed()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(h.stateOf(f)); err != nil {
			h.logger.Debug("websocket write failed", "session", id, "error", err)
			return
		}

	wait:
		for {
			select {
			case <-changed:
				break wait
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			case <-r.Context().Done():
				return
			}
		}
	}
}
