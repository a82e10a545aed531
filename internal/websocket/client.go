package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 32
	pingInterval   = 30 * time.Second
)

// subscribeRequest is the only message clients send. An empty list restores
// the default of receiving every collection.
type subscribeRequest struct {
	Subscribe []string `json:"subscribe"`
}

// Client is a single WebSocket connection.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	send chan []byte

	mu     sync.RWMutex
	topics map[string]bool
}

func NewClient(hub *Hub, conn *ws.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// Subscribe limits the client to the named collections.
func (c *Client) Subscribe(entities []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(entities) == 0 {
		c.topics = nil
		return
	}
	c.topics = make(map[string]bool, len(entities))
	for _, e := range entities {
		c.topics[e] = true
	}
}

func (c *Client) subscribed(entity string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topics == nil || c.topics[entity]
}

// Run registers the client and pumps messages until the connection closes.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var req subscribeRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.hub.logger.Debug("ignoring client message", "error", err)
			continue
		}
		c.Subscribe(req.Subscribe)
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
