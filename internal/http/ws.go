package http

import (
	nethttp "net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"fl-status-panel/internal/panel"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsBuffer       = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *nethttp.Request) bool {
		return true
	},
}

// socketMessage is the frame pushed to dashboard clients.
type socketMessage struct {
	Type     string          `json:"type"`
	Elements []panel.Element `json:"elements,omitempty"`
	Element  *panel.Element  `json:"element,omitempty"`
}

// panelSocketHandler streams element changes to a dashboard. The first frame
// is a full snapshot; every later frame carries one changed element.
func panelSocketHandler(doc *panel.Document, logger zerolog.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		// Subscribe before snapshotting so no change falls between the two.
		updates, unsubscribe := doc.Subscribe(wsBuffer)
		defer unsubscribe()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()

		log := logger.With().Str("client_id", uuid.NewString()).Logger()
		log.Debug().Str("remote", r.RemoteAddr).Msg("websocket client connected")
		defer log.Debug().Msg("websocket client disconnected")

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(socketMessage{Type: "snapshot", Elements: doc.Snapshot()}); err != nil {
			log.Warn().Err(err).Msg("websocket snapshot write failed")
			return
		}

		closed := make(chan struct{})
		go readUntilClosed(conn, closed, log)

		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-closed:
				return
			case el, ok := <-updates:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(socketMessage{Type: "element", Element: &el}); err != nil {
					log.Warn().Err(err).Msg("websocket write failed")
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}

// readUntilClosed drains client frames so control messages are processed, and
// closes done once the peer goes away.
func readUntilClosed(conn *websocket.Conn, done chan<- struct{}, log zerolog.Logger) {
	defer close(done)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}
