package store

import (
	"context"

	"github.com/HaydenEquityAi/stockmarket/pkg/models"
)

// StockStore is the persistence sink for latest-price records plus the read
// paths the REST layer serves from.
type StockStore interface {
	// UpsertQuote writes the symbol-keyed record, creating it if absent.
	UpsertQuote(ctx context.Context, q models.Quote) error
	// Snapshots returns the last persisted record payloads for the given
	// symbols; symbols never written are simply missing from the result.
	Snapshots(ctx context.Context, symbols []string) ([]string, error)
	// History returns up to limit most-recent history entries for a symbol,
	// newest first, as recorded by the firehose recorder.
	History(ctx context.Context, symbol string, limit int) ([]string, error)
	Close() error
}
