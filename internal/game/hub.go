package game

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

const (
	CLIENT_SEND_BUFFER = 256
	WRITE_TIMEOUT      = 10 * time.Second
)

// MessageConn is the part of a websocket connection the hub writes to.
type MessageConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client owns one connection. A single writer goroutine drains its queue,
// so a player's messages arrive in the order they were sent.
type Client struct {
	conn      MessageConn
	userID    string
	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn MessageConn, userID string) *Client {
	c := &Client{
		conn:   conn,
		userID: userID,
		queue:  make(chan []byte, CLIENT_SEND_BUFFER),
		done:   make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

type outbound struct {
	userID  string // empty means everyone
	message interface{}
}

// Hub fans table messages out to websocket connections, grouped by player.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	stopChan   chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopChan:   make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.stopChan:
			h.mu.Lock()
			for client := range h.clients {
				client.close()
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] Client connected: %s (Total: %d)", client.userID, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				log.Printf("[WS] Client disconnected: %s (Total: %d)", client.userID, len(h.clients))
			}
			h.mu.Unlock()
			client.close()

		case out := <-h.broadcast:
			jsonMessage, err := json.Marshal(out.message)
			if err != nil {
				log.Printf("[WS] Marshal error: %v", err)
				continue
			}

			h.mu.RLock()
			for client := range h.clients {
				if out.userID == "" || client.userID == out.userID {
					client.enqueue(jsonMessage)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// Broadcast sends to every connection. It never blocks; a full queue drops.
func (h *Hub) Broadcast(message interface{}) {
	h.enqueue(outbound{message: message})
}

// SendTo sends to the connections of a single player.
func (h *Hub) SendTo(userID string, message interface{}) {
	h.enqueue(outbound{userID: userID, message: message})
}

func (h *Hub) enqueue(out outbound) {
	select {
	case h.broadcast <- out:
	default:
		log.Println("[WS] Broadcast channel full, dropping message")
	}
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send queues a message for this connection only.
func (c *Client) Send(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Send marshal error: %v", err)
		return
	}
	c.enqueue(data)
}

// enqueue never blocks; a client that cannot keep up loses messages.
func (c *Client) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.queue <- data:
	default:
		log.Printf("[WS] Send queue full for user %s, dropping message", c.userID)
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.queue:
			c.conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("[WS] Write error for user %s: %v", c.userID, err)
			}
		}
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

func (h *Hub) RegisterClient(conn MessageConn, userID string) *Client {
	client := newClient(conn, userID)
	select {
	case h.register <- client:
	case <-h.stopChan:
	}
	return client
}

// UnregisterClient removes the client and closes its connection.
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopChan:
		client.close()
	}
}
