package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/protocol"
)

// Conn is the transport handle the registry tracks. The gateway's client
// adapter implements it; tests substitute mocks.
type Conn interface {
	ID() string
	SendJSON(v interface{})
	IsOpen() bool
	Close()
}

// Registry tracks, per live connection, the single symbol that connection
// currently wants updates for. Inbound message handlers mutate it and the
// scheduler reads it from its own goroutine, so all state sits behind one
// RWMutex.
type Registry struct {
	mu     sync.RWMutex
	subs   map[Conn]string
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		subs:   make(map[Conn]string),
		logger: logger,
	}
}

// Subscribe records the connection's interest in symbol, overwriting any
// previous subscription (one symbol per connection). The symbol must already
// be uppercased by the transport layer. Returns the ack payload for the
// caller to send back on the same connection.
func (r *Registry) Subscribe(c Conn, symbol string) protocol.SubscribeAck {
	r.mu.Lock()
	prev, had := r.subs[c]
	r.subs[c] = symbol
	r.mu.Unlock()

	if had && prev != symbol {
		r.logger.Debug("Subscription replaced",
			zap.String("conn", c.ID()), zap.String("old", prev), zap.String("new", symbol))
	} else {
		r.logger.Info("Client subscribed",
			zap.String("conn", c.ID()), zap.String("symbol", symbol))
	}

	return protocol.NewSubscribeAck(symbol)
}

// Unsubscribe clears the connection's subscription. No-op if it had none.
func (r *Registry) Unsubscribe(c Conn) {
	r.mu.Lock()
	_, had := r.subs[c]
	delete(r.subs, c)
	r.mu.Unlock()

	if had {
		r.logger.Info("Client unsubscribed", zap.String("conn", c.ID()))
	}
}

// OnDisconnect removes the connection's entry. The transport's close handler
// must call this; a missed call would leave the fan-out step pushing to a
// dead handle and grow the polled symbol set with connection churn.
func (r *Registry) OnDisconnect(c Conn) {
	r.Unsubscribe(c)
}

// SymbolFor reports the connection's current subscription, if any.
func (r *Registry) SymbolFor(c Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sym, ok := r.subs[c]
	return sym, ok
}

// DistinctSymbols returns the deduplicated set of all currently subscribed
// symbols. An empty result short-circuits the scheduler's poll.
func (r *Registry) DistinctSymbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.subs))
	out := make([]string, 0, len(r.subs))
	for _, sym := range r.subs {
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}

// ConnectionsFor returns every connection subscribed to exactly this symbol.
func (r *Registry) ConnectionsFor(symbol string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Conn
	for c, sym := range r.subs {
		if sym == symbol {
			out = append(out, c)
		}
	}
	return out
}

// Shutdown releases every tracked connection handle and closes the
// underlying transports. The registry is not usable afterwards.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	conns := make([]Conn, 0, len(r.subs))
	for c := range r.subs {
		conns = append(conns, c)
	}
	r.subs = make(map[Conn]string)
	r.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
