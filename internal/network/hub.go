package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/engine"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/events"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/metrics"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/ratelimit"
)

// Message types pushed to viewers.
const (
	MsgTypeEvent    = "event"
	MsgTypeState    = "state"
	MsgTypeFeedback = "feedback"
	MsgTypeError    = "error"
)

// Message is the envelope of every server-to-client frame.
type Message struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Payload   any    `json:"payload"`
}

// HubOptions sizes the hub's queues.
type HubOptions struct {
	BroadcastBuffer  int
	ClientSendBuffer int
	PollInterval     time.Duration
}

// directMessage is addressed to a single client.
type directMessage struct {
	client  *Client
	payload []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
// Only Run touches the client set.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	direct     chan directMessage
	register   chan *Client
	unregister chan *Client
	// done is closed when Run returns.
	done chan struct{}

	engine  *engine.Engine
	limiter *ratelimit.Limiter
	opts    HubOptions
	logger  *logger.Logger
	stats   *metrics.Collector

	mu    sync.Mutex
	count int
}

// NewHub initializes a new WebSocket Hub bound to the engine.
func NewHub(eng *engine.Engine, limiter *ratelimit.Limiter, opts HubOptions, log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, opts.BroadcastBuffer),
		direct:     make(chan directMessage, opts.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		engine:     eng,
		limiter:    limiter,
		opts:       opts,
		logger:     log,
		stats:      metrics.Get(),
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.clients[client] = true
			h.setCount(len(h.clients))
			h.stats.RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected from " + client.remote)
		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				h.logger.Info("WebSocket client disconnected")
			}
		case d := <-h.direct:
			if !h.clients[d.client] {
				continue
			}
			select {
			case d.client.send <- d.payload:
				h.stats.RecordWSMessage(false)
			default:
				h.stats.RecordWSError()
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
					h.stats.RecordWSMessage(false)
				default:
					// Slow consumer.
					h.stats.RecordWSError()
					h.drop(client)
				}
			}
		}
	}
}

// drop removes a client and closes its queue. Only called from Run.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.setCount(len(h.clients))
	h.stats.RecordWSConnection(-1)
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Broadcast serializes msg and queues it for every client.
// It never blocks the caller; a full queue drops the message.
func (h *Hub) Broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to serialize message for WebSocket broadcast: " + err.Error())
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.stats.RecordWSError()
		h.logger.Warn("Broadcast queue full, dropping " + msg.Type + " message")
	}
}

// BroadcastEvent pushes one engine event to all viewers.
func (h *Hub) BroadcastEvent(event events.Event) {
	h.Broadcast(Message{Type: MsgTypeEvent, Timestamp: event.Timestamp.Unix(), Payload: event})
}

// BroadcastState pushes a fresh snapshot to all viewers.
func (h *Hub) BroadcastState() {
	s := h.engine.Snapshot()
	h.Broadcast(Message{Type: MsgTypeState, Timestamp: s.Timestamp.Unix(), Payload: s})
}

// StartEventPoller spawns a goroutine that forwards new events from the
// EventLog to the Hub, followed by one state snapshot per batch.
func (h *Hub) StartEventPoller(ctx context.Context) {
	go h.pollEvents(ctx)
}

func (h *Hub) pollEvents(ctx context.Context) {
	pollInterval := time.NewTicker(h.opts.PollInterval)
	defer pollInterval.Stop()

	eventLog := h.engine.GetEventLog()
	last := eventLog.LastSeq()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pollInterval.C:
			last = h.forwardSince(eventLog, last)
		}
	}
}

// forwardSince broadcasts events after seq and returns the new cursor.
func (h *Hub) forwardSince(eventLog *events.EventLog, seq uint64) uint64 {
	newEvents := eventLog.Since(seq)
	if len(newEvents) == 0 {
		return seq
	}
	for _, event := range newEvents {
		h.BroadcastEvent(event)
	}
	h.BroadcastState()
	return newEvents[len(newEvents)-1].Seq
}

// RegisterRoutes mounts the WebSocket endpoint.
func (h *Hub) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.ServeWS)
}
