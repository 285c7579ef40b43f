package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pawlik/clickarena/internal/adapters/hub"
	"github.com/pawlik/clickarena/internal/domain/model"
	"github.com/pawlik/clickarena/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WSHandler bridges hub subscriptions onto WebSocket connections.
type WSHandler struct {
	svc    Service
	logger logger.Logger
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(svc Service) *WSHandler {
	return &WSHandler{svc: svc, logger: logger.Get().Named("ws")}
}

// wsClientMessage is what a connected client may send.
// Actions: click, join, ping.
type wsClientMessage struct {
	Action        string `json:"action"`
	ParticipantID string `json:"participantId"`
	PlayerID      string `json:"playerId"`
	ClickDelta    int64  `json:"clickDelta"`
}

type wsInitMessage struct {
	Type     string               `json:"type"`
	Snapshot model.BattleSnapshot `json:"snapshot"`
}

type wsPongMessage struct {
	Type string `json:"type"`
}

// HandleWS handles GET /battles/{id}/ws. The full snapshot is sent
// before any delta so the client never renders from deltas alone.
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	battleID := r.PathValue("id")

	sub, snap, err := h.svc.Subscribe(r.Context(), battleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.svc.Unsubscribe(sub)
		return
	}

	session := &wsSession{
		conn:     conn,
		svc:      h.svc,
		battleID: battleID,
		sub:      sub,
		pong:     make(chan struct{}, 1),
		logger:   h.logger,
	}
	go session.writePump(snap)
	session.readPump(r.Context())
}

type wsSession struct {
	conn     *websocket.Conn
	svc      Service
	battleID string
	sub      *hub.Subscriber
	pong     chan struct{}
	logger   logger.Logger
}

// readPump consumes client actions until the connection drops.
func (s *wsSession) readPump(ctx context.Context) {
	defer func() {
		s.svc.Unsubscribe(s.sub)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg wsClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}

		switch msg.Action {
		case "click":
			if msg.ParticipantID == "" {
				continue
			}
			if _, _, err := s.svc.RecordClick(ctx, s.battleID, msg.ParticipantID, msg.ClickDelta, time.Now(), "ws"); err != nil {
				s.logger.Warn(ctx, "ws click rejected",
					logger.String("battleID", s.battleID),
					logger.Error(err),
				)
			}
		case "join":
			if msg.PlayerID == "" {
				continue
			}
			if _, _, err := s.svc.JoinBattle(ctx, s.battleID, msg.PlayerID); err != nil {
				s.logger.Warn(ctx, "ws join rejected",
					logger.String("battleID", s.battleID),
					logger.Error(err),
				)
			}
		case "ping":
			select {
			case s.pong <- struct{}{}:
			default:
			}
		}
	}
}

// writePump owns all writes: the init snapshot, deltas, pongs and
// keepalive pings.
func (s *wsSession) writePump(snap model.BattleSnapshot) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	if err := s.write(wsInitMessage{Type: "init", Snapshot: snap}); err != nil {
		return
	}

	for {
		select {
		case delta, ok := <-s.sub.Deltas():
			if !ok {
				_ = s.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			if err := s.write(delta); err != nil {
				return
			}
		case <-s.pong:
			if err := s.write(wsPongMessage{Type: "pong"}); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *wsSession) write(v any) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}
