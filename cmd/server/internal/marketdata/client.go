package marketdata

import (
	"context"

	"github.com/HaydenEquityAi/stockmarket/pkg/models"
)

// Client fetches a batch of quotes from one upstream market-data API,
// normalized into the internal quote shape.
//
// Contract: per-symbol failures (non-2xx, malformed payload) drop that
// symbol from the result and are never surfaced as an error. A missing
// credential yields an empty result, not an error. A non-nil error means a
// systemic fault (nothing could be fetched at the transport level) and is
// the adapter's trigger for provider fallback.
type Client interface {
	Name() string
	Fetch(ctx context.Context, symbols []string) ([]models.Quote, error)
}
