package polygon_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/httpx"
	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/marketdata/polygon"
)

func newClient(t *testing.T, handler http.Handler) (*polygon.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := polygon.New(polygon.Config{APIKey: "test-key", BaseURL: srv.URL},
		httpx.New(2*time.Second), zap.NewNop())
	return c, srv
}

func TestPolygon_Normalization(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/aggs/ticker/AAPL/prev", r.URL.Path)
		require.Equal(t, "true", r.URL.Query().Get("adjusted"))
		require.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		w.Write([]byte(`{"results":[{"o":100.0,"c":105.5,"v":123456}]}`))
	}))

	quotes, err := c.Fetch(t.Context(), []string{"aapl"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	q := quotes[0]
	require.Equal(t, "AAPL", q.Symbol)
	require.Equal(t, 105.5, q.Price)
	require.NotNil(t, q.Change)
	require.InDelta(t, 5.5, *q.Change, 1e-9)
	require.NotNil(t, q.ChangePercent)
	require.InDelta(t, 5.5, *q.ChangePercent, 1e-9)
	require.NotNil(t, q.Volume)
	require.Equal(t, 123456.0, *q.Volume)
	require.NotZero(t, q.Timestamp)
}

func TestPolygon_PerSymbolIsolation(t *testing.T) {
	// One symbol 500s, the other succeeds; the batch must return the
	// healthy one and no error.
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/aggs/ticker/BAD/prev" {
			http.Error(w, "upstream broken", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"results":[{"o":10,"c":12,"v":42}]}`))
	}))

	quotes, err := c.Fetch(t.Context(), []string{"GOOD", "BAD"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.Equal(t, "GOOD", quotes[0].Symbol)
}

func TestPolygon_MissingKey_EmptyWithoutCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	t.Cleanup(srv.Close)

	c := polygon.New(polygon.Config{APIKey: "", BaseURL: srv.URL},
		httpx.New(time.Second), zap.NewNop())

	quotes, err := c.Fetch(t.Context(), []string{"AAPL"})
	require.NoError(t, err)
	require.Empty(t, quotes)
	require.Zero(t, calls.Load(), "missing credential must not reach upstream")
}

func TestPolygon_MalformedBarDropped(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/aggs/ticker/NOBAR/prev":
			w.Write([]byte(`{"results":[]}`))
		case "/v2/aggs/ticker/NOCLOSE/prev":
			w.Write([]byte(`{"results":[{"o":100.0,"v":1}]}`))
		default:
			w.Write([]byte(`{"results":[{"o":50,"c":55,"v":9}]}`))
		}
	}))

	quotes, err := c.Fetch(t.Context(), []string{"NOBAR", "NOCLOSE", "OK"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.Equal(t, "OK", quotes[0].Symbol)
}

func TestPolygon_AllTransportFailures_SystemicError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // every request now fails at the transport level

	c := polygon.New(polygon.Config{APIKey: "k", BaseURL: srv.URL},
		httpx.New(time.Second), zap.NewNop())

	quotes, err := c.Fetch(t.Context(), []string{"AAPL", "MSFT"})
	require.Error(t, err)
	require.Empty(t, quotes)
}

func TestPolygon_EmptyInput(t *testing.T) {
	var calls atomic.Int32
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	quotes, err := c.Fetch(t.Context(), nil)
	require.NoError(t, err)
	require.Empty(t, quotes)
	require.Zero(t, calls.Load())
}
