package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// StudentMessage tells a student that their record changed.
type StudentMessage struct {
	Type     string `json:"type"`
	Action   string `json:"action,omitempty"`
	Approved bool   `json:"approved"`
	Claimed  bool   `json:"claimed"`
}

type studentNotification struct {
	address string
	payload []byte
}

// StudentHub keeps at most one connection per student address.
type StudentHub struct {
	register   chan *studentClient
	unregister chan *studentClient
	notify     chan studentNotification
	clients    map[string]*studentClient
	count      atomic.Int64
	done       chan struct{}
}

func NewStudentHub() *StudentHub {
	return &StudentHub{
		register:   make(chan *studentClient),
		unregister: make(chan *studentClient),
		notify:     make(chan studentNotification, sendBufferSize),
		done:       make(chan struct{}),
		clients:    make(map[string]*studentClient),
	}
}

func (h *StudentHub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for _, client := range h.clients {
			h.drop(client)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			if existing, ok := h.clients[client.address]; ok {
				h.drop(existing)
			}
			h.clients[client.address] = client
			h.count.Store(int64(len(h.clients)))
		case client := <-h.unregister:
			if stored, ok := h.clients[client.address]; ok && stored == client {
				h.drop(client)
			}
		case msg := <-h.notify:
			if client, ok := h.clients[msg.address]; ok {
				select {
				case client.send <- msg.payload:
				default:
					h.drop(client)
				}
			}
		}
	}
}

func (h *StudentHub) drop(client *studentClient) {
	delete(h.clients, client.address)
	close(client.send)
	client.conn.Close()
	h.count.Store(int64(len(h.clients)))
}

func (h *StudentHub) Len() int {
	return int(h.count.Load())
}

// Notify queues message for address. Students that are not connected miss it.
func (h *StudentHub) Notify(address string, message StudentMessage) {
	if h == nil {
		return
	}
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	select {
	case h.notify <- studentNotification{address: address, payload: data}:
	default:
	}
}

type studentClient struct {
	hub     *StudentHub
	conn    *websocket.Conn
	send    chan []byte
	address string
}

func newStudentClient(hub *StudentHub, conn *websocket.Conn, address string) *studentClient {
	return &studentClient{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 64),
		address: address,
	}
}

func (c *studentClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	}()
	readUntilClosed(c.conn)
}

func (c *studentClient) writePump() {
	writeLoop(c.conn, c.send)
}
