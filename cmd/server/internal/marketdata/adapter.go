package marketdata

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/HaydenEquityAi/stockmarket/pkg/models"
)

// Adapter fronts the active upstream provider and applies the fallback
// policy. FetchQuotes never fails: every failure mode degrades to a smaller
// (possibly empty) result.
type Adapter struct {
	active   Client
	fallback Client // nil when the active provider is already the secondary
	timeout  time.Duration
	logger   *zap.Logger
}

func NewAdapter(active, fallback Client, timeout time.Duration, logger *zap.Logger) *Adapter {
	return &Adapter{
		active:   active,
		fallback: fallback,
		timeout:  timeout,
		logger:   logger,
	}
}

// FetchQuotes fetches fresh quotes for the given symbols from the active
// provider. On a systemic provider fault the full batch is retried once
// against the fallback provider, if one is configured. An empty symbol list
// returns immediately without any upstream call. Duplicate symbols are not
// deduplicated here; that is the caller's job.
func (a *Adapter) FetchQuotes(ctx context.Context, symbols []string) []models.Quote {
	if len(symbols) == 0 {
		return []models.Quote{}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	quotes, err := a.active.Fetch(ctx, symbols)
	if err == nil {
		return quotes
	}

	a.logger.Error("Market data provider error",
		zap.String("provider", a.active.Name()), zap.Error(err))

	if a.fallback == nil {
		return []models.Quote{}
	}

	a.logger.Info("Falling back to secondary provider",
		zap.String("provider", a.fallback.Name()))

	quotes, err = a.fallback.Fetch(ctx, symbols)
	if err != nil {
		a.logger.Error("Fallback provider error",
			zap.String("provider", a.fallback.Name()), zap.Error(err))
		return []models.Quote{}
	}
	return quotes
}
