package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/soyeahso/honeypot/internal/logging"
)

// writeWait bounds a single frame write to a feed client.
const writeWait = 5 * time.Second

// sendQueueSize is how many frames a client may fall behind before it is
// dropped.
const sendQueueSize = 64

// Client is one subscriber of the /events feed.
type Client struct {
	ConnID      string
	RemoteAddr  string
	Socket      *websocket.Conn
	ConnectedAt time.Time

	queue chan Frame
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		ConnID:      uuid.New().String(),
		RemoteAddr:  remoteAddr,
		Socket:      conn,
		ConnectedAt: time.Now(),
		queue:       make(chan Frame, sendQueueSize),
		done:        make(chan struct{}),
	}
}

// Enqueue hands frame to the client's writer without blocking. It reports
// false when the client is closed or its queue is full.
func (c *Client) Enqueue(frame Frame) bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false
	}
	select {
	case c.queue <- frame:
		return true
	default:
		return false
	}
}

// writePump writes queued frames until the client is closed or a write
// fails.
func (c *Client) writePump() error {
	for {
		select {
		case <-c.done:
			return ErrClientClosed
		case f := <-c.queue:
			if err := c.Send(f); err != nil {
				return err
			}
		}
	}
}

// Send writes a frame. Thread-safe.
func (c *Client) Send(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Socket.WriteJSON(frame)
}

// Close closes the connection once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.done != nil {
		close(c.done)
	}
	if c.Socket == nil {
		return nil
	}
	return c.Socket.Close()
}

// ClientRegistry tracks connected feed clients.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client // connID → Client
	log     *logging.Logger
}

// NewClientRegistry creates an empty client registry.
func NewClientRegistry(log *logging.Logger) *ClientRegistry {
	return &ClientRegistry{
		clients: make(map[string]*Client),
		log:     log,
	}
}

// Add registers a connected client.
func (r *ClientRegistry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ConnID] = c
	r.log.Info().Str("connId", c.ConnID).Str("remote", c.RemoteAddr).Msg("feed client connected")
}

// Remove unregisters a client by connection ID.
func (r *ClientRegistry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[connID]; !ok {
		return
	}
	delete(r.clients, connID)
	r.log.Info().Str("connId", connID).Msg("feed client disconnected")
}

// Get returns a client by connection ID.
func (r *ClientRegistry) Get(connID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[connID]
	return c, ok
}

// Count returns the number of connected clients.
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast queues frame for every client and never waits on a socket.
// Clients that are closed or too far behind are dropped.
func (r *ClientRegistry) Broadcast(frame Frame) {
	r.mu.RLock()
	targets := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	for _, c := range targets {
		if !c.Enqueue(frame) {
			r.log.Warn().Str("connId", c.ConnID).Msg("feed client backed up, dropping")
			r.Remove(c.ConnID)
			// Close waits for an in-flight write, so keep it off this path.
			go c.Close()
		}
	}
}

// CloseAll closes all connected clients.
func (r *ClientRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.clients {
		c.Close()
		delete(r.clients, id)
	}
}
