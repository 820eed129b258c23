package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait     = 10 * time.Second
	sendQueueSize = 32
)

// Session is one connected event-stream client. Outbound frames go through
// a buffered queue so a slow reader never blocks the broadcaster.
type Session struct {
	id     string
	socket *websocket.Conn
	mu     sync.Mutex // guards send against close
	send   chan []byte
	closed atomic.Bool
}

func NewSession(id string, socket *websocket.Conn) *Session {
	return &Session{
		id:     id,
		socket: socket,
		send:   make(chan []byte, sendQueueSize),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Send queues a frame for delivery. Frames are dropped when the queue is
// full or the session already closed.
func (s *Session) Send(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return
	}
	select {
	case s.send <- data:
	default:
	}
}

// Close terminates the session. Safe to call more than once.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	close(s.send)
	s.mu.Unlock()
	s.socket.Close()
}

// writeLoop drains the send queue onto the socket until the session closes.
func (s *Session) writeLoop() {
	for data := range s.send {
		s.socket.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.socket.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// readLoop consumes inbound frames so control messages are processed and a
// disconnect is noticed promptly. Client payloads are ignored.
func (s *Session) readLoop(onClose func()) {
	defer onClose()
	for {
		if _, _, err := s.socket.ReadMessage(); err != nil {
			return
		}
	}
}
