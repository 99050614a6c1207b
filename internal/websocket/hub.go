package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"sectorflow/internal/batch"
)

// Message types sent to clients.
const (
	TypeConnection = "connection"
)

// Message is the envelope of every frame sent to clients.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
	RunID     string      `json:"run_id,omitempty"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	logger  *slog.Logger
	metrics *hubMetrics
}

// NewHub creates a hub. Call Start before registering clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	metrics, err := newHubMetrics()
	if err != nil {
		logger.Warn("websocket metrics unavailable", "error", err)
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger,
		metrics:    metrics,
	}
}

// Start runs the hub loop. It is idempotent.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop ends the hub loop and closes every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)
	ctx := context.Background()

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.metrics.connected(ctx, 1)

			h.logger.Info("client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))

			if data, err := encode(TypeConnection, map[string]string{"status": "connected", "client_id": client.id}, ""); err == nil {
				select {
				case client.send <- data:
				default:
				}
			}

		case client := <-h.unregister:
			h.remove(ctx, client, "client unregistered")

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				select {
				case client.send <- message:
					h.metrics.sent(ctx)
				default:
					h.remove(ctx, client, "client send buffer full, disconnecting")
				}
			}
		}
	}
}

func (h *Hub) remove(ctx context.Context, client *Client, msg string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()
	h.metrics.connected(ctx, -1)

	h.logger.Info(msg,
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)),
		slog.Int("total_clients", count))
}

// Broadcast queues a message for every client. It drops the message when
// the queue is full rather than block the caller.
func (h *Hub) Broadcast(msgType string, data interface{}, runID string) {
	payload, err := encode(msgType, data, runID)
	if err != nil {
		h.logger.Error("failed to marshal message", slog.String("type", msgType), slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("broadcast queue full, dropping message", slog.String("type", msgType))
	}
}

// Publish forwards a batch progress event to every client.
func (h *Hub) Publish(e batch.Event) {
	h.Broadcast(string(e.Type), e, e.RunID)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub. It reports false once the hub has
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

func encode(msgType string, data interface{}, runID string) ([]byte, error) {
	return json.Marshal(Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
		RunID:     runID,
	})
}

type hubMetrics struct {
	clients  metric.Int64UpDownCounter
	messages metric.Int64Counter
}

func newHubMetrics() (*hubMetrics, error) {
	meter := otel.Meter("sectorflow.websocket")
	clients, err := meter.Int64UpDownCounter("websocket_clients",
		metric.WithDescription("Connected websocket clients"))
	if err != nil {
		return nil, err
	}
	messages, err := meter.Int64Counter("websocket_messages_sent_total",
		metric.WithDescription("Messages delivered to websocket clients"))
	if err != nil {
		return nil, err
	}
	return &hubMetrics{clients: clients, messages: messages}, nil
}

func (m *hubMetrics) connected(ctx context.Context, delta int64) {
	if m != nil {
		m.clients.Add(ctx, delta)
	}
}

func (m *hubMetrics) sent(ctx context.Context) {
	if m != nil {
		m.messages.Add(ctx, 1)
	}
}
