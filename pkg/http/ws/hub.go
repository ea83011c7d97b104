package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	sendQueue    = 64
)

// Hub tracks every open connection of each student. A student may have
// several tabs open at once; all of them receive the student's messages.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]map[*Connection]struct{}
	logger      zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]map[*Connection]struct{}),
		logger:      logger.With().Str("component", "ws_hub").Logger(),
	}
}

// Register adds a connection for a student.
func (h *Hub) Register(studentID uuid.UUID, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.connections[studentID]
	if !ok {
		set = make(map[*Connection]struct{})
		h.connections[studentID] = set
	}
	set[conn] = struct{}{}
	h.logger.Debug().Str("student_id", studentID.String()).Int("connections", len(set)).Msg("connection registered")
}

// Unregister removes and closes a connection.
func (h *Hub) Unregister(studentID uuid.UUID, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.connections[studentID]
	if !ok {
		return
	}
	if _, ok := set[conn]; !ok {
		return
	}
	conn.Close()
	delete(set, conn)
	if len(set) == 0 {
		delete(h.connections, studentID)
	}
	h.logger.Debug().Str("student_id", studentID.String()).Msg("connection unregistered")
}

// SendToStudent delivers msg to every connection of the student and returns
// how many accepted it. ErrConnectionNotFound means the student has none.
func (h *Hub) SendToStudent(studentID uuid.UUID, msg Message) (int, error) {
	h.mu.RLock()
	set := h.connections[studentID]
	conns := make([]*Connection, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return 0, ErrConnectionNotFound
	}

	var (
		delivered int
		firstErr  error
	)
	for _, c := range conns {
		if err := c.Send(msg); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			h.logger.Warn().Err(err).Str("student_id", studentID.String()).Msg("send to student failed")
			continue
		}
		delivered++
	}
	if delivered > 0 {
		return delivered, nil
	}
	return 0, firstErr
}

// ConnectionCount returns the number of open connections of a student.
func (h *Hub) ConnectionCount(studentID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[studentID])
}

// Connection represents a WebSocket connection with send queue.
type Connection struct {
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a WebSocket connection.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{
		conn:   conn,
		sendCh: make(chan Message, sendQueue),
		logger: logger,
	}
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
	if c.conn != nil {
		c.conn.Close()
	}
}

// WritePump sends messages from the send queue.
func (c *Connection) WritePump() {
	defer c.conn.Close()

	for msg := range c.sendCh {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			c.logger.Warn().Err(err).Msg("write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump receives messages and calls the handler until the peer goes away.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))

		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Msg("message handler error")
		}
	}
}

var (
	ErrConnectionNotFound = &Error{Code: "connection_not_found", Message: "Student connection not found"}
	ErrConnectionClosed   = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull      = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
