package testutils

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/HaydenEquityAi/stockmarket/pkg/models"
)

// MockConn simulates a connected websocket client
type MockConn struct {
	IDVal    string
	Messages []json.RawMessage // every SendJSON payload, marshalled
	Closed   bool
	Open     bool
	Mu       sync.Mutex
}

func NewMockConn(id string) *MockConn {
	return &MockConn{IDVal: id, Open: true}
}

func (m *MockConn) ID() string { return m.IDVal }

func (m *MockConn) IsOpen() bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Open
}

func (m *MockConn) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Open = false
	m.Closed = true
}

func (m *MockConn) SendJSON(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Messages = append(m.Messages, b)
}

func (m *MockConn) MessageCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Messages)
}

func (m *MockConn) LastMessage() json.RawMessage {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Messages) == 0 {
		return nil
	}
	return m.Messages[len(m.Messages)-1]
}

// MockFetcher implements the scheduler's QuoteFetcher seam with canned
// results and a call counter.
type MockFetcher struct {
	Quotes    []models.Quote
	Calls     int
	LastBatch []string
	Mu        sync.Mutex
}

func (m *MockFetcher) FetchQuotes(ctx context.Context, symbols []string) []models.Quote {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls++
	m.LastBatch = append([]string(nil), symbols...)

	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}
	var out []models.Quote
	for _, q := range m.Quotes {
		if want[q.Symbol] {
			out = append(out, q)
		}
	}
	return out
}

func (m *MockFetcher) CallCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Calls
}

// MockSink implements the scheduler's QuoteSink seam. FailSymbols lets a
// test poison persistence for specific symbols.
type MockSink struct {
	Upserts     []models.Quote
	FailSymbols map[string]bool
	Mu          sync.Mutex
}

func (m *MockSink) UpsertQuote(ctx context.Context, q models.Quote) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.FailSymbols[q.Symbol] {
		return errors.New("persistence unavailable")
	}
	m.Upserts = append(m.Upserts, q)
	return nil
}

func (m *MockSink) UpsertCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Upserts)
}

// MockMarketClient implements marketdata.Client for adapter tests.
type MockMarketClient struct {
	NameVal string
	Quotes  []models.Quote
	Err     error
	Calls   int
	Mu      sync.Mutex
}

func (m *MockMarketClient) Name() string { return m.NameVal }

func (m *MockMarketClient) Fetch(ctx context.Context, symbols []string) ([]models.Quote, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Quotes, nil
}

func (m *MockMarketClient) CallCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Calls
}
