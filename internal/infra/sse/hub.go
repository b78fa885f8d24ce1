package sse

import (
	"fmt"
	"sync"

	"github.com/allayhq/api/internal/metrics"
	"github.com/allayhq/api/pkg/logger"
)

// subscriberBuffer is the per-subscriber frame queue depth. A subscriber
// that falls this far behind is treated as dead and pruned.
const subscriberBuffer = 64

// Subscriber is one live stream handle. Frames arrive on Frames; the owner
// writes them to the transport and calls Unsubscribe when the transport
// goes away.
type Subscriber struct {
	tenantID string
	frames   chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

// Frames is the ordered frame queue for this handle.
func (s *Subscriber) Frames() <-chan []byte {
	return s.frames
}

// Done is closed when the handle has been removed from the hub.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// TenantID returns the tenant this handle is scoped to.
func (s *Subscriber) TenantID() string {
	return s.tenantID
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Hub is the in-process registry of stream subscribers, partitioned by
// tenant. Broadcasts reach only the tenant's own subscribers, and a
// tenant with no subscribers holds no registry entry at all.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscriber]struct{}
	closed      bool

	logger *logger.Logger
}

// NewHub creates an empty Hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Subscriber]struct{}),
		logger:      log,
	}
}

// Subscribe registers a new handle for the tenant. The synthetic connected
// frame is already queued on the returned handle.
func (h *Hub) Subscribe(tenantID string) (*Subscriber, error) {
	frame, err := NewConnectedEvent().Frame()
	if err != nil {
		return nil, fmt.Errorf("failed to build connected frame: %w", err)
	}

	sub := &Subscriber{
		tenantID: tenantID,
		frames:   make(chan []byte, subscriberBuffer),
		done:     make(chan struct{}),
	}
	sub.frames <- frame

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		sub.close()
		return nil, fmt.Errorf("hub is closed")
	}

	set, ok := h.subscribers[tenantID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subscribers[tenantID] = set
	}
	set[sub] = struct{}{}

	h.logger.Debug("sse subscriber added", "tenant_id", tenantID, "tenant_subscribers", len(set))
	return sub, nil
}

// Unsubscribe removes a handle. Removing one that is already gone is a
// no-op, and the tenant's registry entry is deleted when its last handle
// leaves.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	h.remove(sub)
	h.mu.Unlock()
}

// remove deletes a handle from the registry. Caller must hold mu.
func (h *Hub) remove(sub *Subscriber) {
	set, ok := h.subscribers[sub.tenantID]
	if ok {
		if _, present := set[sub]; present {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subscribers, sub.tenantID)
			}
			h.logger.Debug("sse subscriber removed", "tenant_id", sub.tenantID, "tenant_subscribers", len(set))
		}
	}
	sub.close()
}

// Broadcast delivers an event to every current subscriber of the tenant
// and returns the number reached. Subscribers whose queue is full are
// dead or hopelessly behind; they are pruned in the same pass. Events
// broadcast while the tenant has no subscribers are dropped.
func (h *Hub) Broadcast(tenantID string, event Event) int {
	frame, err := event.Frame()
	if err != nil {
		h.logger.Error("failed to encode sse event", "tenant_id", tenantID, "type", string(event.Type), "error", err)
		return 0
	}

	h.mu.RLock()
	set := h.subscribers[tenantID]
	targets := make([]*Subscriber, 0, len(set))
	for sub := range set {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return 0
	}

	var dead []*Subscriber
	delivered := 0
	for _, sub := range targets {
		select {
		case sub.frames <- frame:
			delivered++
		default:
			dead = append(dead, sub)
		}
	}

	if len(dead) > 0 {
		h.mu.Lock()
		for _, sub := range dead {
			h.remove(sub)
		}
		h.mu.Unlock()
		metrics.StreamSubscribersPruned.Add(float64(len(dead)))
		h.logger.Warn("pruned dead sse subscribers", "tenant_id", tenantID, "count", len(dead))
	}

	return delivered
}

// SubscriberCount returns the number of live handles for a tenant.
func (h *Hub) SubscriberCount(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[tenantID])
}

// TotalSubscribers returns the number of live handles across all tenants.
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, set := range h.subscribers {
		total += len(set)
	}
	return total
}

// Close removes every subscriber and rejects future subscriptions. Used
// during server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for tenantID, set := range h.subscribers {
		for sub := range set {
			sub.close()
		}
		delete(h.subscribers, tenantID)
	}
	h.logger.Info("sse hub closed")
}
