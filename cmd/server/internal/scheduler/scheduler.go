package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/protocol"
	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/registry"
	"github.com/HaydenEquityAi/stockmarket/pkg/models"
)

// QuoteFetcher is the provider adapter seam. Implementations never fail;
// they degrade to a smaller result.
type QuoteFetcher interface {
	FetchQuotes(ctx context.Context, symbols []string) []models.Quote
}

// QuoteSink is the persistence seam (upsert keyed by symbol).
type QuoteSink interface {
	UpsertQuote(ctx context.Context, q models.Quote) error
}

// QuotePublisher is the optional firehose seam.
type QuotePublisher interface {
	Publish(ctx context.Context, q models.Quote) error
}

// Scheduler runs the poll-fetch-persist-broadcast loop. Each tick reads the
// distinct subscribed symbols, fetches fresh quotes, upserts them, and pushes
// each quote only to connections subscribed to that exact symbol. No single
// tick's errors ever stop the loop; only context cancellation does.
type Scheduler struct {
	registry *registry.Registry
	fetcher  QuoteFetcher
	sink     QuoteSink
	firehose QuotePublisher // nil when the firehose is disabled
	interval time.Duration
	logger   *zap.Logger

	// symbols that have never produced a quote, so operators can tell
	// "no data ever" from "temporarily down"
	neverSeen map[string]bool
}

func New(reg *registry.Registry, fetcher QuoteFetcher, sink QuoteSink, firehose QuotePublisher, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		registry:  reg,
		fetcher:   fetcher,
		sink:      sink,
		firehose:  firehose,
		interval:  interval,
		logger:    logger,
		neverSeen: make(map[string]bool),
	}
}

// Run blocks until ctx is cancelled. A tick that has started runs to
// completion; there is no mid-tick cancellation.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Quote scheduler started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Quote scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick executes one poll-fetch-persist-broadcast pass. Panics are contained
// here so a poisoned tick cannot kill the recurring timer.
func (s *Scheduler) Tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Tick panicked", zap.Any("panic", r))
		}
	}()

	symbols := s.registry.DistinctSymbols()
	if len(symbols) == 0 {
		return
	}

	quotes := s.fetcher.FetchQuotes(ctx, symbols)
	if len(quotes) == 0 {
		s.logger.Warn("No quotes returned this tick", zap.Strings("symbols", symbols))
		s.trackMissing(symbols, nil)
		return
	}

	got := make(map[string]bool, len(quotes))
	for _, q := range quotes {
		got[q.Symbol] = true

		// Persistence happens-before broadcast for this symbol, so a client
		// re-querying storage right after a push sees consistent data.
		if err := s.sink.UpsertQuote(ctx, q); err != nil {
			s.logger.Error("Persist failed", zap.String("symbol", q.Symbol), zap.Error(err))
		}

		if s.firehose != nil {
			if err := s.firehose.Publish(ctx, q); err != nil {
				s.logger.Error("Firehose publish failed", zap.String("symbol", q.Symbol), zap.Error(err))
			}
		}

		s.broadcast(q)
	}

	s.trackMissing(symbols, got)
}

func (s *Scheduler) broadcast(q models.Quote) {
	update := protocol.NewPriceUpdate(q)
	for _, c := range s.registry.ConnectionsFor(q.Symbol) {
		// A connection may have closed between tick start and push.
		if !c.IsOpen() {
			continue
		}
		c.SendJSON(update)
	}
}

// trackMissing logs, once per symbol, subscriptions that have never yielded
// a single quote. got may be nil when the whole batch came back empty.
func (s *Scheduler) trackMissing(requested []string, got map[string]bool) {
	for _, sym := range requested {
		if got[sym] {
			if s.neverSeen[sym] {
				delete(s.neverSeen, sym)
			}
			continue
		}
		if !s.neverSeen[sym] {
			s.neverSeen[sym] = true
			s.logger.Warn("Symbol has produced no data yet", zap.String("symbol", sym))
		}
	}
}
