package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zaqqye/scholarship_backend/internal/scholarship"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// AuditPayload is pushed to admin dashboards for every committed operation.
type AuditPayload struct {
	Action     string                  `json:"action"`
	Attributes []scholarship.Attribute `json:"attributes"`
	Subject    string                  `json:"subject,omitempty"`
	Student    *scholarship.Student    `json:"student,omitempty"`
	At         time.Time               `json:"at"`
}

func newAuditPayload(ev scholarship.Event) AuditPayload {
	return AuditPayload{
		Action:     ev.Action,
		Attributes: ev.Attributes,
		Subject:    ev.Subject,
		Student:    ev.Student,
		At:         time.Now().UTC(),
	}
}

// AuditHub handles websocket clients who listen for every scholarship event.
type AuditHub struct {
	register   chan *auditClient
	unregister chan *auditClient
	broadcast  chan []byte
	clients    map[*auditClient]struct{}
	count      atomic.Int64
	done       chan struct{}
}

func NewAuditHub() *AuditHub {
	return &AuditHub{
		register:   make(chan *auditClient),
		unregister: make(chan *auditClient),
		broadcast:  make(chan []byte, sendBufferSize),
		done:       make(chan struct{}),
		clients:    make(map[*auditClient]struct{}),
	}
}

func (h *AuditHub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for client := range h.clients {
			h.drop(client)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.count.Store(int64(len(h.clients)))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					h.drop(client)
				}
			}
		}
	}
}

func (h *AuditHub) drop(client *auditClient) {
	delete(h.clients, client)
	close(client.send)
	client.conn.Close()
	h.count.Store(int64(len(h.clients)))
}

// Len reports the number of connected listeners.
func (h *AuditHub) Len() int {
	return int(h.count.Load())
}

// Broadcast queues payload for every listener. It drops the payload when the
// queue is full rather than stall the caller.
func (h *AuditHub) Broadcast(payload AuditPayload) {
	if h == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("ws: failed to marshal audit payload", slog.Any("error", err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		slog.Warn("ws: audit queue full, event dropped", slog.String("action", payload.Action))
	}
}

type auditClient struct {
	hub  *AuditHub
	conn *websocket.Conn
	send chan []byte
}

func newAuditClient(hub *AuditHub, conn *websocket.Conn) *auditClient {
	return &auditClient{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

func (c *auditClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	}()
	readUntilClosed(c.conn)
}

func (c *auditClient) writePump() {
	writeLoop(c.conn, c.send)
}

func readUntilClosed(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func writeLoop(conn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case msg, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
