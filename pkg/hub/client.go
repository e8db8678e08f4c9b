package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound frames; UI clients only send control frames
	maxMessageSize = 4 * 1024

	// sendBuffer is how many messages a client may lag before it is dropped
	sendBuffer = 64
)

// Client represents a single websocket connection
type Client struct {
	ID string

	hub   *Hub
	conn  *websocket.Conn
	send  chan Message
	greet *Message

	// closed when writePump has returned
	done chan struct{}
}

// NewClient creates a new client and registers it with the hub.
// greet, if non-nil, is written before any broadcast.
// It returns nil if the hub has stopped.
func NewClient(hub *Hub, conn *websocket.Conn, greet *Message) *Client {
	client := &Client{
		ID:    uuid.NewString(),
		hub:   hub,
		conn:  conn,
		send:  make(chan Message, sendBuffer),
		greet: greet,
		done:  make(chan struct{}),
	}
	select {
	case hub.register <- client:
		return client
	case <-hub.done:
		return nil
	}
}

// Run starts the client's read and write pumps
// This should be called in the websocket handler. It returns only after
// both pumps stopped, since the handler's conn is recycled on return.
func (c *Client) Run() {
	go c.writePump()
	c.readPump() // Blocks until connection closes
	<-c.done
}

// Done is closed once the client no longer touches its connection
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// readPump reads messages from the websocket connection
// It keeps the connection alive and detects disconnection
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// We don't expect messages from clients, but we need to read
		// to detect disconnection and receive pong responses
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) write(message Message) error {
	wsType := websocket.TextMessage
	if message.Type == BinaryMessage {
		wsType = websocket.BinaryMessage
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(wsType, message.Data)
}

// writePump writes messages to the websocket connection
// Only this goroutine writes to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.done)
	}()

	if c.greet != nil {
		if err := c.write(*c.greet); err != nil {
			return
		}
	}

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel - send close frame
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
