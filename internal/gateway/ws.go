package gateway

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dataflywheel/chatgate/internal/log"
)

// wsChannel adapts a gorilla connection to the Channel interface. gorilla
// allows one concurrent writer, so Send serializes with a mutex; Receive is
// only ever called from the loop goroutine.
type wsChannel struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

func (c *wsChannel) Receive() (Frame, error) {
	var f Frame
	err := c.conn.ReadJSON(&f)
	return f, err
}

func (c *wsChannel) Send(f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(f)
}

func (c *wsChannel) Close() error {
	return c.conn.Close()
}

// WSHandler upgrades HTTP requests and hands the connection to the loop. It
// serves both the named route (/ws/{client_id}) and the bare one, where a
// fresh UUID identifies the client.
type WSHandler struct {
	loop     *Loop
	upgrader websocket.Upgrader
	logger   log.Logger
}

// NewWSHandler builds the WebSocket entry point.
func NewWSHandler(loop *Loop, logger log.Logger) *WSHandler {
	return &WSHandler{
		loop: loop,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients are served from anywhere; the gateway has
			// no cookie-based auth for cross-origin requests to ride on.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("client_id")
	if id == "" {
		id = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn("websocket upgrade failed", "client_id", id, "error", err)
		return
	}

	h.loop.Run(r.Context(), id, &wsChannel{conn: conn})
}
