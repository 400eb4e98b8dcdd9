package websocket

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 32
)

var (
	errConnClosed     = errors.New("connection is closed")
	errSendBufferFull = errors.New("send buffer is full")
)

// Conn is one client of the gateway. Send never blocks.
type Conn interface {
	ID() string
	Send(message *Message) error
	Close()
}

// client adapts a gorilla socket to Conn. Writes go through the send channel
// so that exactly one goroutine writes to the socket.
type client struct {
	id     string
	socket *websocket.Conn
	logger *slog.Logger

	mu     sync.Mutex
	send   chan *Message
	closed bool
}

func newClient(id string, socket *websocket.Conn, logger *slog.Logger) *client {
	return &client{
		id:     id,
		socket: socket,
		logger: logger.With("connID", id),
		send:   make(chan *Message, sendBufferSize),
	}
}

func (that *client) ID() string {
	return that.id
}

func (that *client) Send(message *Message) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return errConnClosed
	}

	select {
	case that.send <- message:
		return nil
	default:
		return errSendBufferFull
	}
}

// Close stops the write pump, which then closes the socket.
func (that *client) Close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	that.closed = true
	close(that.send)
}

// readPump hands every text frame to handle until the socket fails.
func (that *client) readPump(handle func(data []byte)) {
	log := that.logger.With("method", "readPump")

	that.socket.SetReadLimit(maxMessageSize)
	_ = that.socket.SetReadDeadline(time.Now().Add(pongWait))
	that.socket.SetPongHandler(func(string) error {
		return that.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := that.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("connection closed unexpectedly", "error", err)
			}
			return
		}

		handle(data)
	}
}

// writePump drains the send channel and keeps the connection alive with pings.
func (that *client) writePump() {
	log := that.logger.With("method", "writePump")

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = that.socket.Close()
	}()

	for {
		select {
		case message, ok := <-that.send:
			_ = that.socket.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				_ = that.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := that.socket.WriteJSON(message); err != nil {
				log.Error("failed to write message", "action", message.Action, "error", err)
				return
			}
		case <-ticker.C:
			_ = that.socket.SetWriteDeadline(time.Now().Add(writeWait))

			if err := that.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("failed to ping", "error", err)
				return
			}
		}
	}
}
