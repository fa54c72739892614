package ws

import (
	"sync"

	"github.com/rs/zerolog"

	"fotnik/internal/domain"
)

// Handle is an open, addressable connection capable of receiving pushed
// events. The registry only needs this narrow capability; *Conn is the
// production implementation.
type Handle interface {
	Send(event domain.ProgressEvent) error
	Closed() bool
}

// Registry tracks live client connections keyed by an opaque client
// identifier. A client may hold several connections at once. Delivery
// failures are isolated per handle and logged, never propagated: one dead
// connection must not abort a broadcast to the others.
type Registry struct {
	mu     sync.Mutex
	conns  map[string][]Handle
	logger zerolog.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		conns:  make(map[string][]Handle),
		logger: logger,
	}
}

// Register appends the handle under the client identifier, creating the entry
// if absent.
func (r *Registry) Register(clientID string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[clientID] = append(r.conns[clientID], h)
}

// Unregister removes the handle. When the client's last handle is removed the
// entry is deleted entirely, so churned identifiers do not accumulate.
func (r *Registry) Unregister(clientID string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	handles := r.conns[clientID]
	for i, existing := range handles {
		if existing == h {
			handles = append(handles[:i], handles[i+1:]...)
			break
		}
	}
	if len(handles) == 0 {
		delete(r.conns, clientID)
		return
	}
	r.conns[clientID] = handles
}

// NotifyOne delivers the event to a single handle. Sends to closed or closing
// handles are a logged no-op.
func (r *Registry) NotifyOne(h Handle, event domain.ProgressEvent) {
	if h.Closed() {
		r.logger.Warn().Str("type", event.Type).Msg("ws: attempted to send to a closed connection")
		return
	}
	if err := h.Send(event); err != nil {
		r.logger.Error().Err(err).Str("type", event.Type).Msg("ws: failed to send message")
	}
}

// NotifyClient delivers the event to every live handle registered under the
// client identifier.
func (r *Registry) NotifyClient(clientID string, event domain.ProgressEvent) {
	for _, h := range r.snapshot(clientID) {
		r.NotifyOne(h, event)
	}
}

// NotifyAll delivers the event to every live handle across all clients.
func (r *Registry) NotifyAll(event domain.ProgressEvent) {
	for _, h := range r.snapshot("") {
		r.NotifyOne(h, event)
	}
}

// snapshot copies the current handle set so delivery happens outside the lock
// and registration churn during a broadcast cannot corrupt iteration.
func (r *Registry) snapshot(clientID string) []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if clientID != "" {
		return append([]Handle(nil), r.conns[clientID]...)
	}
	var out []Handle
	for _, handles := range r.conns {
		out = append(out, handles...)
	}
	return out
}

// Len reports the number of clients with at least one live connection.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
