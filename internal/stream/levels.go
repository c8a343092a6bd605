package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/satindergrewal/sayit/internal/audio"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// LevelHandler streams the loudness of every captured block to websocket
// clients as JSON audio.Level messages, for a live input meter.
type LevelHandler struct {
	broadcaster *Broadcaster
	upgrader    websocket.Upgrader
	log         zerolog.Logger
}

// NewLevelHandler creates a level meter handler.
func NewLevelHandler(b *Broadcaster, logger zerolog.Logger) *LevelHandler {
	return &LevelHandler{
		broadcaster: b,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger.With().Str("component", "levels").Logger(),
	}
}

func (h *LevelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	listener := h.broadcaster.Subscribe()
	defer func() {
		h.broadcaster.Unsubscribe(listener)
		h.log.Debug().Uint64("dropped", listener.Dropped()).Msg("Level meter disconnected")
	}()

	h.log.Debug().Str("remote", r.RemoteAddr).Msg("Level meter connected")

	closed := make(chan struct{})
	go h.readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-listener.Done():
			return
		case block := <-listener.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(audio.Measure(block)); err != nil {
				h.log.Debug().Err(err).Msg("Level write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and closes closed when the client goes
// away. Reading is needed for pong and close frames to be processed.
func (h *LevelHandler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Msg("Level meter closed unexpectedly")
			}
			return
		}
	}
}
