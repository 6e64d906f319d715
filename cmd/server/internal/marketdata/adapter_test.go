package marketdata_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/marketdata"
	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/testutils"
	"github.com/HaydenEquityAi/stockmarket/pkg/models"
)

func TestAdapter_EmptyInput_NoUpstreamCall(t *testing.T) {
	primary := &testutils.MockMarketClient{NameVal: "primary"}
	adapter := marketdata.NewAdapter(primary, nil, time.Second, zap.NewNop())

	out := adapter.FetchQuotes(context.Background(), nil)

	if len(out) != 0 {
		t.Errorf("Expected empty result, got %v", out)
	}
	if primary.CallCount() != 0 {
		t.Errorf("Empty input must not issue an upstream call, got %d calls", primary.CallCount())
	}
}

func TestAdapter_FallbackOnSystemicFault(t *testing.T) {
	quotes := []models.Quote{{Symbol: "AAPL", Price: 190.12}}
	primary := &testutils.MockMarketClient{NameVal: "polygon", Err: errors.New("connection refused")}
	secondary := &testutils.MockMarketClient{NameVal: "finnhub", Quotes: quotes}

	adapter := marketdata.NewAdapter(primary, secondary, time.Second, zap.NewNop())
	out := adapter.FetchQuotes(context.Background(), []string{"AAPL"})

	if primary.CallCount() != 1 || secondary.CallCount() != 1 {
		t.Errorf("Expected one call each, got primary=%d secondary=%d",
			primary.CallCount(), secondary.CallCount())
	}
	// Fallback result must match calling the secondary directly
	direct, _ := secondary.Fetch(context.Background(), []string{"AAPL"})
	if len(out) != len(direct) || out[0] != direct[0] {
		t.Errorf("Fallback result %v differs from direct secondary result %v", out, direct)
	}
}

func TestAdapter_NoFallbackWhenActiveIsSecondary(t *testing.T) {
	active := &testutils.MockMarketClient{NameVal: "finnhub", Err: errors.New("boom")}

	adapter := marketdata.NewAdapter(active, nil, time.Second, zap.NewNop())
	out := adapter.FetchQuotes(context.Background(), []string{"AAPL"})

	if len(out) != 0 {
		t.Errorf("Expected empty result, got %v", out)
	}
	if active.CallCount() != 1 {
		t.Errorf("Expected exactly one attempt, got %d", active.CallCount())
	}
}

func TestAdapter_BothProvidersFault(t *testing.T) {
	primary := &testutils.MockMarketClient{NameVal: "polygon", Err: errors.New("down")}
	secondary := &testutils.MockMarketClient{NameVal: "finnhub", Err: errors.New("also down")}

	adapter := marketdata.NewAdapter(primary, secondary, time.Second, zap.NewNop())
	out := adapter.FetchQuotes(context.Background(), []string{"AAPL", "MSFT"})

	if out == nil || len(out) != 0 {
		t.Errorf("Expected empty non-failing result, got %v", out)
	}
}

func TestAdapter_ActiveSuccess_SkipsFallback(t *testing.T) {
	primary := &testutils.MockMarketClient{NameVal: "polygon",
		Quotes: []models.Quote{{Symbol: "NVDA", Price: 875.28}}}
	secondary := &testutils.MockMarketClient{NameVal: "finnhub"}

	adapter := marketdata.NewAdapter(primary, secondary, time.Second, zap.NewNop())
	out := adapter.FetchQuotes(context.Background(), []string{"NVDA"})

	if len(out) != 1 || out[0].Symbol != "NVDA" {
		t.Errorf("Unexpected result: %v", out)
	}
	if secondary.CallCount() != 0 {
		t.Error("Fallback must not be consulted when the active provider succeeds")
	}
}
