package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"homelink-backend/pkg/constants"
	"homelink-backend/pkg/logger"
)

// Session is one authenticated WebSocket connection. Outbound frames go
// through a bounded channel; when it fills up the session is force-closed
// rather than buffered further.
type Session struct {
	UserID   uuid.UUID
	Username string

	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(userID uuid.UUID, username string, conn *websocket.Conn, queueSize int) *Session {
	return &Session{
		UserID:   userID,
		Username: username,
		conn:     conn,
		send:     make(chan []byte, queueSize),
		done:     make(chan struct{}),
	}
}

// enqueue hands a frame to the write pump without blocking. False means the
// outbound queue is full (slow consumer) or the session is closing.
func (s *Session) enqueue(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// forceClose tears the session down; safe to call more than once
func (s *Session) forceClose() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			s.conn.Close()
		}
	})
}

// sendEvent marshals and enqueues an event for this session only
func (s *Session) sendEvent(event string, payload any) bool {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		logger.Error("failed to encode frame", zap.String("event", event), zap.Error(err))
		return false
	}
	return s.enqueue(frame)
}

// writePump drains the outbound queue onto the socket and keeps the
// connection alive with pings. It exits when the session closes, closing
// the connection so readPump unblocks too.
func (s *Session) writePump() {
	ticker := time.NewTicker(constants.WebSocketPingInterval * 9 / 10)
	defer func() {
		ticker.Stop()
		s.forceClose()
	}()

	for {
		select {
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
