package broker

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Fallbacks for unset connection settings.
const (
	defaultSendBuffer   = 256
	defaultPingInterval = 30 * time.Second
	defaultPongWait     = 10 * time.Second
)

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Clients are local displays; there is no browser origin to check.
		return true
	},
}

// client is one websocket connection.
type client struct {
	broker *Broker
	conn   *websocket.Conn
	send   chan []byte
	remote string

	// systemID is the subscribed system, "" until Initialise.
	// Guarded by broker.mu.
	systemID string
}

// handleWebSocket upgrades the request and starts the client pumps.
func (b *Broker) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	size := b.cfg.SendBuffer
	if size <= 0 {
		size = defaultSendBuffer
	}
	c := &client{
		broker: b,
		conn:   conn,
		send:   make(chan []byte, size),
		remote: r.RemoteAddr,
	}

	if !b.registerClient(c) {
		conn.Close() //nolint:errcheck // Broker is shutting down
		return
	}

	go c.writePump()
	go c.readPump()
}

// registerClient adds a connected client, unsubscribed, and accounts for
// its two pumps. It returns false once the broker is closing.
func (b *Broker) registerClient(c *client) bool {
	b.mu.Lock()
	if b.closing {
		b.mu.Unlock()
		return false
	}
	b.clients[c] = struct{}{}
	b.pumps.Add(2)
	n := len(b.clients)
	b.mu.Unlock()

	b.logger.Debug("websocket client connected", "remote", c.remote, "clients", n)
	return true
}

// unregisterClient removes a client after its connection closed.
// Only the caller that removes the client closes its send channel.
func (b *Broker) unregisterClient(c *client) {
	b.mu.Lock()
	_, existed := b.clients[c]
	delete(b.clients, c)
	n := len(b.clients)
	b.mu.Unlock()

	if existed {
		close(c.send)
	}
	b.logger.Debug("websocket client disconnected", "remote", c.remote, "clients", n)
}

// closeClients disconnects every client and refuses new ones until the
// next Start.
func (b *Broker) closeClients() {
	b.mu.Lock()
	b.closing = true
	clients := b.clients
	b.clients = make(map[*client]struct{})
	b.mu.Unlock()

	for c := range clients {
		close(c.send)
		c.conn.Close() //nolint:errcheck // Best-effort close during shutdown
	}
}

func (b *Broker) pingInterval() time.Duration {
	if b.wsCfg.PingInterval <= 0 {
		return defaultPingInterval
	}
	return time.Duration(b.wsCfg.PingInterval) * time.Second
}

func (b *Broker) pongWait() time.Duration {
	if b.wsCfg.PongTimeout <= 0 {
		return defaultPongWait
	}
	return time.Duration(b.wsCfg.PongTimeout) * time.Second
}

// readPump reads inbound messages until the connection fails or closes.
func (c *client) readPump() {
	b := c.broker
	defer func() {
		b.unregisterClient(c)
		c.conn.Close() //nolint:errcheck // Connection is finished
		b.pumps.Done()
	}()

	if b.wsCfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(b.wsCfg.MaxMessageSize))
	}
	deadline := b.pingInterval() + b.pongWait()
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Warn("websocket read error", "remote", c.remote, "error", err)
			} else {
				b.logger.Debug("websocket closed", "remote", c.remote, "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(deadline))
		b.handleMessage(c, message)
	}
}

// writePump writes queued messages and keep-alive pings.
func (c *client) writePump() {
	b := c.broker
	ticker := time.NewTicker(b.pingInterval())
	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck // Connection is finished
		b.pumps.Done()
	}()

	writeWait := b.pongWait()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "broker shutting down"))
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				b.logger.Debug("websocket write failed", "remote", c.remote, "error", err)
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues data without blocking.
//
// It returns ErrDeliveryFailed when the buffer is full or the client has
// already disconnected. It never mutates broker state; a dead client is
// removed when its read pump exits.
func (c *client) trySend(data []byte) (err error) {
	defer func() {
		if recover() != nil {
			err = fmt.Errorf("%w: connection closed", ErrDeliveryFailed)
		}
	}()

	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("%w: send buffer full", ErrDeliveryFailed)
	}
}
