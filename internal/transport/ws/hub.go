package ws

import (
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"visionlex-server-go/internal/app/notify"
	"visionlex-server-go/internal/platform/logging"
)

// Event is the envelope every frame on /api/events uses.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub tracks the active event-stream sessions and fans notification bus
// traffic out to all of them.
type Hub struct {
	logger   *logging.Logger
	sessions sync.Map // map[string]*Session
	upgrader websocket.Upgrader
}

func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Bind subscribes the hub to the notification bus. Toasts and state
// snapshots become broadcast frames.
func (h *Hub) Bind(center *notify.Center) error {
	if err := center.Bus().Subscribe(notify.TopicToast, func(t notify.Toast) {
		h.Broadcast("toast", t)
	}); err != nil {
		return err
	}
	return center.Bus().Subscribe(notify.TopicState, func(snapshot interface{}) {
		h.Broadcast("state", snapshot)
	})
}

// Handler upgrades the request and runs the session until disconnect.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		socket, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.WarnTag("WS", "upgrade failed: %v", err)
			return
		}

		session := NewSession(uuid.NewString(), socket)
		h.sessions.Store(session.ID(), session)
		h.logger.InfoTag("WS", "session %s connected", session.ID())

		go session.writeLoop()
		session.readLoop(func() {
			h.remove(session.ID())
		})
	}
}

// Broadcast sends one event to every connected session.
func (h *Hub) Broadcast(eventType string, payload interface{}) {
	data, err := sonic.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		h.logger.WarnTag("WS", "marshal %s event: %v", eventType, err)
		return
	}
	h.sessions.Range(func(_, value any) bool {
		if session, ok := value.(*Session); ok {
			session.Send(data)
		}
		return true
	})
}

// Count exposes the number of connected sessions.
func (h *Hub) Count() int {
	n := 0
	h.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// CloseAll terminates every session, for shutdown.
func (h *Hub) CloseAll() {
	h.sessions.Range(func(key, value any) bool {
		if session, ok := value.(*Session); ok {
			session.Close()
		}
		h.sessions.Delete(key)
		return true
	})
}

func (h *Hub) remove(id string) {
	if value, ok := h.sessions.LoadAndDelete(id); ok {
		if session, ok := value.(*Session); ok {
			session.Close()
		}
		h.logger.InfoTag("WS", "session %s disconnected", id)
	}
}
