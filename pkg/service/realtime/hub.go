package realtime

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/domain/types"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
	"github.com/hearth-archive/hearth/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrOutboxFull     = errors.New("client outbox is full")
)

const defaultOutboxSize = 64

// Conn is the write side of a client connection
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// AuthenticatedFrame is the first frame every registered client receives
type AuthenticatedFrame struct {
	Type     string         `json:"type"`
	ClientID model.ClientID `json:"client_id"`
}

// QueueEntry is an event waiting for a client of its role
type QueueEntry struct {
	Event    *model.Event
	QueuedAt time.Time
}

type client struct {
	info   model.ConnectedClient
	conn   Conn
	outbox chan any
}

// Hub tracks connected clients and per-role offline queues. Writes to a
// client go through its bounded outbox and a dedicated writer goroutine.
type Hub struct {
	mu         sync.Mutex
	clients    map[model.ClientID]*client
	queues     map[types.Role][]QueueEntry
	outboxSize int
	now        func() time.Time
}

type Option func(*Hub)

func WithOutboxSize(n int) Option {
	return func(h *Hub) {
		h.outboxSize = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		h.now = now
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[model.ClientID]*client),
		queues:     make(map[types.Role][]QueueEntry),
		outboxSize: defaultOutboxSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.outboxSize <= 0 {
		h.outboxSize = defaultOutboxSize
	}
	return h
}

// Register adds a client and atomically takes every queued entry for its
// role. The client receives an AuthenticatedFrame before anything else.
func (h *Hub) Register(ctx context.Context, conn Conn, role types.Role) (*model.ConnectedClient, []QueueEntry) {
	now := h.now().UTC()
	c := &client{
		info: model.ConnectedClient{
			ID:          model.NewClientID(),
			Role:        role,
			ConnectedAt: now,
			LastSeenAt:  now,
		},
		conn:   conn,
		outbox: make(chan any, h.outboxSize),
	}
	c.outbox <- &AuthenticatedFrame{Type: "authenticated", ClientID: c.info.ID}

	h.mu.Lock()
	h.clients[c.info.ID] = c
	drained := h.queues[role]
	delete(h.queues, role)
	h.mu.Unlock()

	go c.writeLoop(context.WithoutCancel(ctx))

	logging.From(ctx).Info("client registered",
		"client_id", c.info.ID,
		"role", role,
		"replay", len(drained))

	info := c.info
	return &info, drained
}

// Unregister removes the client and closes its connection once the outbox is flushed
func (h *Hub) Unregister(ctx context.Context, id model.ClientID) bool {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(c.outbox)
	}
	h.mu.Unlock()

	if ok {
		logging.From(ctx).Info("client unregistered", "client_id", id, "role", c.info.Role)
	}
	return ok
}

// Touch updates the last-seen time of a client
func (h *Hub) Touch(id model.ClientID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[id]
	if ok {
		c.info.LastSeenAt = h.now().UTC()
	}
	return ok
}

// Send queues v on a client's outbox without blocking
func (h *Hub) Send(id model.ClientID, v any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[id]
	if !ok {
		return goerr.Wrap(ErrClientNotFound, "cannot send", goerr.V("client_id", id))
	}
	return c.push(v)
}

// Broadcast offers v to every client of role and returns how many accepted it.
// A client with a full outbox is skipped.
func (h *Hub) Broadcast(ctx context.Context, role types.Role, v any) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.broadcastLocked(ctx, role, v)
}

// DeliverOrEnqueue pushes event to the connected clients of role, or queues it
// for the next one when none accepts it. Registration cannot interleave, so a
// client is either offered the event or drains it from the queue.
func (h *Hub) DeliverOrEnqueue(ctx context.Context, role types.Role, event *model.Event) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	accepted := h.broadcastLocked(ctx, role, event)
	if accepted == 0 {
		h.queues[role] = append(h.queues[role], QueueEntry{Event: event, QueuedAt: h.now().UTC()})
	}
	return accepted
}

func (h *Hub) broadcastLocked(ctx context.Context, role types.Role, v any) int {
	accepted := 0
	for _, c := range h.clients {
		if c.info.Role != role {
			continue
		}
		if err := c.push(v); err != nil {
			logging.From(ctx).Warn("skip client on broadcast",
				"client_id", c.info.ID,
				"role", role,
				"error", err)
			continue
		}
		accepted++
	}
	return accepted
}

// HasRole reports whether any client of role is connected
func (h *Hub) HasRole(role types.Role) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.clients {
		if c.info.Role == role {
			return true
		}
	}
	return false
}

// Enqueue stores an event until the next client of role connects
func (h *Hub) Enqueue(role types.Role, event *model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.queues[role] = append(h.queues[role], QueueEntry{Event: event, QueuedAt: h.now().UTC()})
}

// Restore puts entries back at the head of role's queue, keeping their queue time
func (h *Hub) Restore(role types.Role, entries []QueueEntry) {
	if len(entries) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.queues[role] = append(append([]QueueEntry{}, entries...), h.queues[role]...)
}

// QueueLength returns the number of entries waiting for role
func (h *Hub) QueueLength(role types.Role) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.queues[role])
}

// SweepQueue drops entries queued before t and returns how many were dropped
func (h *Hub) SweepQueue(t time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := 0
	for role, entries := range h.queues {
		kept := entries[:0]
		for _, e := range entries {
			if e.QueuedAt.Before(t) {
				dropped++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(h.queues, role)
		} else {
			h.queues[role] = kept
		}
	}
	return dropped
}

// Snapshot returns the connected clients ordered by connection time
func (h *Hub) Snapshot() []model.ConnectedClient {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]model.ConnectedClient, 0, len(h.clients))
	for _, c := range h.clients {
		result = append(result, c.info)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ConnectedAt.Equal(result[j].ConnectedAt) {
			return result[i].ConnectedAt.Before(result[j].ConnectedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Close unregisters every client
func (h *Hub) Close(ctx context.Context) {
	h.mu.Lock()
	ids := make([]model.ClientID, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		h.Unregister(ctx, id)
	}
}

// push must be called with the hub lock held
func (c *client) push(v any) error {
	select {
	case c.outbox <- v:
		return nil
	default:
		return goerr.Wrap(ErrOutboxFull, "outbox full", goerr.V("client_id", c.info.ID))
	}
}

func (c *client) writeLoop(ctx context.Context) {
	defer safe.Close(ctx, c.conn)

	logger := logging.From(ctx)
	for v := range c.outbox {
		if err := c.conn.WriteJSON(v); err != nil {
			logger.Warn("failed to write to client",
				"client_id", c.info.ID,
				"role", c.info.Role,
				"error", err)
		}
	}
}
