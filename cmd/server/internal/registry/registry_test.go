package registry_test

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/registry"
	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/testutils"
)

func setup() *registry.Registry {
	return registry.NewRegistry(zap.NewNop())
}

func TestRegistry_Subscribe_Ack(t *testing.T) {
	r := setup()
	c := testutils.NewMockConn("c1")

	ack := r.Subscribe(c, "AAPL")

	if ack.Type != "subscribed" || ack.Symbol != "AAPL" {
		t.Errorf("Unexpected ack: %+v", ack)
	}
	if ack.Message != "Subscribed to AAPL" {
		t.Errorf("Unexpected ack message: %q", ack.Message)
	}
}

func TestRegistry_Subscribe_Overwrite(t *testing.T) {
	r := setup()
	c := testutils.NewMockConn("c1")

	r.Subscribe(c, "AAPL")
	r.Subscribe(c, "MSFT")

	syms := r.DistinctSymbols()
	if len(syms) != 1 || syms[0] != "MSFT" {
		t.Errorf("Expected only MSFT after re-subscribe, got %v", syms)
	}
	if conns := r.ConnectionsFor("AAPL"); len(conns) != 0 {
		t.Errorf("AAPL should have no subscribers after overwrite")
	}
}

func TestRegistry_Unsubscribe_Idempotent(t *testing.T) {
	r := setup()
	c := testutils.NewMockConn("c1")

	// Unsubscribing a connection that never subscribed is a no-op
	r.Unsubscribe(c)

	r.Subscribe(c, "AAPL")
	r.Unsubscribe(c)
	r.Unsubscribe(c)

	if syms := r.DistinctSymbols(); len(syms) != 0 {
		t.Errorf("Expected empty symbol set, got %v", syms)
	}
}

func TestRegistry_DisconnectCleanup(t *testing.T) {
	r := setup()
	c1 := testutils.NewMockConn("c1")
	c2 := testutils.NewMockConn("c2")

	r.Subscribe(c1, "AAPL")
	r.Subscribe(c2, "MSFT")

	r.OnDisconnect(c1)

	for _, sym := range []string{"AAPL", "MSFT"} {
		for _, conn := range r.ConnectionsFor(sym) {
			if conn.ID() == "c1" {
				t.Errorf("Disconnected conn still registered for %s", sym)
			}
		}
	}

	syms := r.DistinctSymbols()
	if len(syms) != 1 || syms[0] != "MSFT" {
		t.Errorf("Expected only MSFT to survive disconnect, got %v", syms)
	}
}

func TestRegistry_DistinctSymbols_Dedup(t *testing.T) {
	r := setup()
	c1 := testutils.NewMockConn("c1")
	c2 := testutils.NewMockConn("c2")
	c3 := testutils.NewMockConn("c3")

	r.Subscribe(c1, "NVDA")
	r.Subscribe(c2, "NVDA")
	r.Subscribe(c3, "TSLA")

	syms := r.DistinctSymbols()
	if len(syms) != 2 {
		t.Errorf("Expected 2 distinct symbols, got %v", syms)
	}
}

func TestRegistry_ConnectionsFor(t *testing.T) {
	r := setup()
	c1 := testutils.NewMockConn("c1")
	c2 := testutils.NewMockConn("c2")

	r.Subscribe(c1, "NVDA")
	r.Subscribe(c2, "NVDA")

	if conns := r.ConnectionsFor("NVDA"); len(conns) != 2 {
		t.Errorf("Expected 2 subscribers for NVDA, got %d", len(conns))
	}
	if conns := r.ConnectionsFor("AAPL"); len(conns) != 0 {
		t.Errorf("Expected no subscribers for AAPL, got %d", len(conns))
	}
}

func TestRegistry_SymbolFor(t *testing.T) {
	r := setup()
	c := testutils.NewMockConn("c1")

	if _, ok := r.SymbolFor(c); ok {
		t.Error("Expected no symbol before subscribe")
	}

	r.Subscribe(c, "AAPL")
	sym, ok := r.SymbolFor(c)
	if !ok || sym != "AAPL" {
		t.Errorf("Expected AAPL, got %q (%v)", sym, ok)
	}
}

func TestRegistry_Shutdown_ClosesConns(t *testing.T) {
	r := setup()
	c1 := testutils.NewMockConn("c1")
	c2 := testutils.NewMockConn("c2")
	r.Subscribe(c1, "AAPL")
	r.Subscribe(c2, "MSFT")

	r.Shutdown()

	if !c1.Closed || !c2.Closed {
		t.Error("Shutdown should close all tracked connections")
	}
	if syms := r.DistinctSymbols(); len(syms) != 0 {
		t.Errorf("Expected empty registry after shutdown, got %v", syms)
	}
}

func TestRegistry_AckIsValidJSON(t *testing.T) {
	r := setup()
	c := testutils.NewMockConn("c1")

	ack := r.Subscribe(c, "NVDA")
	b, err := json.Marshal(ack)
	if err != nil {
		t.Fatalf("marshal ack: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if decoded["type"] != "subscribed" || decoded["symbol"] != "NVDA" {
		t.Errorf("Unexpected wire shape: %s", b)
	}
}

func TestRegistry_RaceCondition(t *testing.T) {
	// Run with `go test -race ./...`
	r := setup()
	c := testutils.NewMockConn("c1")

	go func() { r.Subscribe(c, "AAPL") }()
	go func() { r.Unsubscribe(c) }()
	go func() { r.DistinctSymbols() }()
	go func() { r.ConnectionsFor("AAPL") }()
	go func() { r.OnDisconnect(c) }()
}
