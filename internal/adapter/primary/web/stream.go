package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"announce-helper/internal/logging"
	"announce-helper/internal/usecase"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = (pongWait * 9) / 10
	maxMsgSize  = 1 << 12
	eventBuffer = 32
)

type wsEnvelope struct {
	Type  string             `json:"type"`
	Event string             `json:"event,omitempty"`
	Data  usecase.PanelState `json:"data"`
}

// The panel binds to loopback and the page is served from the same origin.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == "http://"+r.Host
	},
}

// handleStream pushes the panel state once on connect and again after
// every hub event.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warnf("ws upgrade: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	events, cancel := s.panel.Subscribe(eventBuffer)
	defer cancel()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go drain(conn, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := s.send(conn, ""); err != nil {
		logging.Debugf("ws initial write: %v", err)
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logging.Debugf("ws ping: %v", err)
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := s.send(conn, string(ev.Kind)); err != nil {
				logging.Debugf("ws write: %v", err)
				return
			}
		}
	}
}

// drain reads until the peer goes away so that control frames are handled.
func drain(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, event string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: "state", Event: event, Data: s.panel.Snapshot()})
}
