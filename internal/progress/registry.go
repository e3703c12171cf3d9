package progress

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/venue-outreach/internal/metrics"
)

// Listener receives messages for a single consumer. Delivery is best-effort.
type Listener interface {
	Send(ctx context.Context, msg Message) error
}

// Connection is a subscribed client.
type Connection interface {
	Listener
	ID() string
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, msg Message) error

// Send implements Listener.
func (f ListenerFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Discard drops every message.
var Discard Listener = ListenerFunc(func(context.Context, Message) error { return nil })

// Registry tracks connected clients and broadcasts messages to them.
type Registry struct {
	mu          sync.RWMutex
	conns       map[string]Connection
	order       []string
	sendTimeout time.Duration
	logger      *zap.Logger
}

// NewRegistry creates an empty registry. Each delivery is bounded by sendTimeout.
func NewRegistry(sendTimeout time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &Registry{
		conns:       make(map[string]Connection),
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Subscribe adds conn. Subscribing the same id twice replaces the old connection.
func (r *Registry) Subscribe(conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[conn.ID()]; !exists {
		r.order = append(r.order, conn.ID())
	}
	r.conns[conn.ID()] = conn
	r.logger.Debug("connection subscribed", zap.String("conn_id", conn.ID()), zap.Int("connections", len(r.conns)))
}

// Unsubscribe removes the connection with id, if present.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; !ok {
		return
	}
	delete(r.conns, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Debug("connection unsubscribed", zap.String("conn_id", id), zap.Int("connections", len(r.conns)))
}

// Len returns the number of subscribed connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Publish sends msg to every connection in subscription order. Failures are
// logged and skipped.
func (r *Registry) Publish(ctx context.Context, msg Message) {
	metrics.ObserveEvent(msg.Type())
	for _, conn := range r.snapshot() {
		sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
		if err := conn.Send(sendCtx, msg); err != nil {
			r.logger.Warn("deliver message failed",
				zap.String("conn_id", conn.ID()),
				zap.String("type", msg.Type()),
				zap.Error(err))
		}
		cancel()
	}
}

// Send implements Listener by broadcasting.
func (r *Registry) Send(ctx context.Context, msg Message) error {
	r.Publish(ctx, msg)
	return nil
}

func (r *Registry) snapshot() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Connection, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.conns[id])
	}
	return out
}
