package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tableside/api/internal/enum"
	"go.uber.org/zap"
)

// Delivery guarantee: events are delivered best effort, at least once, to
// subscribers that are connected when the event is emitted. Nothing is
// persisted and nothing is replayed on reconnect; subscribers treat every
// event as a cue to re-fetch state, never as the state itself.

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TablePayload is the payload of order-changed and order-completed events.
type TablePayload struct {
	TableNumber int32 `json:"table_number"`
}

// NewEvent marshals payload into an Event of the given kind. A nil payload
// produces an event without a payload.
func NewEvent(kind string, payload any) (Event, error) {
	ev := Event{Type: kind}
	if payload == nil {
		return ev, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	ev.Payload = raw
	return ev, nil
}

// Table extracts the advisory table number from the payload, or 0.
func (e Event) Table() int32 {
	if len(e.Payload) == 0 {
		return 0
	}
	var p TablePayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return 0
	}
	return p.TableNumber
}

// Handler receives events delivered to an in-process subscription.
type Handler func(Event)

// InboundHandler reacts to messages sent by dashboards over their socket.
type InboundHandler interface {
	HandleInbound(ctx context.Context, ev Event)
}

type subscription struct {
	kind  string
	queue chan Event
}

// Hub fans events out to websocket clients and in-process subscribers.
// It is created once per process and passed explicitly to whoever needs to
// publish or subscribe.
type Hub struct {
	id uuid.UUID

	clients map[*Client]bool
	subs    map[uuid.UUID]*subscription

	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	done       chan struct{}

	relay      Relay
	inbound    InboundHandler
	sendBuffer int
	logger     *zap.Logger

	mu sync.RWMutex
}

type Option func(*Hub)

func WithLogger(l *zap.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// WithRelay bridges this hub with hubs of other server instances.
func WithRelay(r Relay) Option {
	return func(h *Hub) { h.relay = r }
}

func WithInboundHandler(ih InboundHandler) Option {
	return func(h *Hub) { h.inbound = ih }
}

// WithSendBuffer sets the per-subscriber queue size. A subscriber whose
// queue is full is dropped (websocket) or misses the event (in-process).
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// NewHub creates a new Hub instance
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		id:         uuid.New(),
		clients:    make(map[*Client]bool),
		subs:       make(map[uuid.UUID]*subscription),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
		sendBuffer: 256,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetInboundHandler installs the handler for client messages. It must be
// called before Run.
func (h *Hub) SetInboundHandler(ih InboundHandler) {
	h.inbound = ih
}

// ID identifies this hub on the relay.
func (h *Hub) ID() uuid.UUID {
	return h.id
}

// Run starts the hub's main loop and blocks until ctx is cancelled.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	if h.relay != nil {
		go h.consumeRelay(ctx)
	}
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

func (h *Hub) deliver(ev Event) {
	// Marshal event to JSON once
	message, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	table := ev.Table()

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.wants(ev.Type, table) {
			continue
		}
		select {
		case client.send <- message:
		default:
			// Client's send buffer is full, close and unregister
			h.logger.Warn("dropping slow websocket client", zap.String("client", client.id.String()))
			close(client.send)
			delete(h.clients, client)
		}
	}

	for id, sub := range h.subs {
		if sub.kind != "" && sub.kind != ev.Type {
			continue
		}
		select {
		case sub.queue <- ev:
		default:
			h.logger.Warn("subscriber queue full, event dropped",
				zap.String("subscription", id.String()), zap.String("type", ev.Type))
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	for id, sub := range h.subs {
		close(sub.queue)
		delete(h.subs, id)
	}
	close(h.done)
}

// Emit publishes an event of the given kind to every current subscriber
// and to the relay. It never blocks on subscribers: if the hub queue is
// full the event is dropped and logged.
func (h *Hub) Emit(kind string, payload any) {
	ev, err := NewEvent(kind, payload)
	if err != nil {
		h.logger.Error("build event", zap.Error(err))
		return
	}
	h.publishLocal(ev)
	if h.relay != nil {
		go h.forward(ev)
	}
}

// OrderChanged emits an order-changed hint. table may be 0.
func (h *Hub) OrderChanged(table int32) {
	if table == 0 {
		h.Emit(enum.EventOrderChanged, nil)
		return
	}
	h.Emit(enum.EventOrderChanged, TablePayload{TableNumber: table})
}

// OrderCompleted emits order-completed for the given table.
func (h *Hub) OrderCompleted(table int32) {
	h.Emit(enum.EventOrderCompleted, TablePayload{TableNumber: table})
}

func (h *Hub) publishLocal(ev Event) {
	select {
	case h.broadcast <- ev:
	default:
		h.logger.Warn("broadcast queue full, event dropped", zap.String("type", ev.Type))
	}
}

func (h *Hub) forward(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.relay.Publish(ctx, Envelope{Origin: h.id, Event: ev}); err != nil {
		h.logger.Warn("relay publish failed", zap.String("type", ev.Type), zap.Error(err))
	}
}

func (h *Hub) consumeRelay(ctx context.Context) {
	for {
		err := h.relay.Subscribe(ctx, func(env Envelope) {
			if env.Origin == h.id {
				return
			}
			h.publishLocal(env.Event)
		})
		if ctx.Err() != nil {
			return
		}
		h.logger.Warn("relay subscription ended, retrying", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

// Subscribe registers an in-process handler for one event kind ("" for
// all kinds). Handlers run on a dedicated goroutine per subscription, in
// emission order. After Run has returned it registers nothing and returns
// uuid.Nil.
func (h *Hub) Subscribe(kind string, fn Handler) uuid.UUID {
	id := uuid.New()
	sub := &subscription{kind: kind, queue: make(chan Event, h.sendBuffer)}

	h.mu.Lock()
	select {
	case <-h.done:
		h.mu.Unlock()
		return uuid.Nil
	default:
	}
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		for ev := range sub.queue {
			h.safeCall(fn, ev)
		}
	}()
	return id
}

// Unsubscribe detaches a subscription. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		close(sub.queue)
		delete(h.subs, id)
	}
}

func (h *Hub) safeCall(fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic in event subscriber", zap.Any("panic", r), zap.String("type", ev.Type))
		}
	}()
	fn(ev)
}

// ClientCount returns the number of connected websocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) removeClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) handleInbound(ev Event) {
	if h.inbound == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	h.inbound.HandleInbound(ctx, ev)
}
