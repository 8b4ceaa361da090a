package notify

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

// ClientMsg é o frame enviado pelo cliente: subscribe | unsubscribe | ping
type ClientMsg struct {
	Type    string `json:"type"`
	EventID string `json:"eventId"`
}

type serverMsg struct {
	Type    string `json:"type"`
	EventID string `json:"eventId,omitempty"`
	Message string `json:"message,omitempty"`
}

// wsSubscriber serializa as escritas: gorilla aceita um único escritor por conexão
type wsSubscriber struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSubscriber) ID() string { return s.id }

func (s *wsSubscriber) Deliver(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *wsSubscriber) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

// WSHandler liga conexões WebSocket ao Bus
type WSHandler struct {
	bus      Bus
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewWSHandler(bus Bus, allowOrigin func(r *http.Request) bool, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		bus:      bus,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
	}
}

// ServeHTTP mantém a conexão até o cliente sair; ao desconectar remove
// todas as assinaturas feitas por ela.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := &wsSubscriber{id: uuid.NewString(), conn: conn}
	topics := map[string]struct{}{}
	defer func() {
		for t := range topics {
			h.bus.Unsubscribe(t, sub)
		}
	}()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.EventID == "" {
				_ = sub.writeJSON(serverMsg{Type: "error", Message: "eventId is required"})
				continue
			}
			if err := h.bus.Subscribe(msg.EventID, sub); err != nil {
				text := "subscribe failed"
				if errors.Is(err, ErrTopicSealed) {
					text = "event already settled"
				}
				_ = sub.writeJSON(serverMsg{Type: "error", EventID: msg.EventID, Message: text})
				continue
			}
			topics[msg.EventID] = struct{}{}
		case "unsubscribe":
			h.bus.Unsubscribe(msg.EventID, sub)
			delete(topics, msg.EventID)
		case "ping":
			_ = sub.writeJSON(serverMsg{Type: "pong"})
		default:
			_ = sub.writeJSON(serverMsg{Type: "error", Message: "unknown message type"})
		}
	}
	h.log.Debug("websocket closed", zap.String("subscriber", sub.id), zap.Int("topics", len(topics)))
}
