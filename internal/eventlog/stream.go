package eventlog

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Deuthe/test-odrl-integration/internal/observability"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// StreamHandler serves the live event stream over a websocket. Each
// event is sent as one JSON text message.
type StreamHandler struct {
	log      *Log
	upgrader websocket.Upgrader
	logger   observability.Logger
}

// NewStreamHandler creates a websocket handler for log.
func NewStreamHandler(log *Log, logger observability.Logger) *StreamHandler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &StreamHandler{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the CORS middleware.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the connection and forwards events until either
// side goes away. A non-upgrade request gets 400 from the upgrader.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("event stream upgrade failed", observability.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := h.log.Subscribe()
	defer cancel()

	h.logger.Debug("event stream subscriber connected",
		observability.String("remote_addr", r.RemoteAddr),
	)

	closed := make(chan struct{})
	go h.readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("event stream write failed", observability.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and signals when the peer closes.
func (h *StreamHandler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("event stream closed unexpectedly", observability.Error(err))
			}
			return
		}
	}
}
