package models

// Quote is a point-in-time price snapshot for one ticker symbol, normalized
// from whichever upstream provider produced it. Change, ChangePercent and
// Volume are nil when the provider did not supply them.
type Quote struct {
	Symbol        string   `json:"symbol"`
	Price         float64  `json:"price"`
	Change        *float64 `json:"change,omitempty"`
	ChangePercent *float64 `json:"changePercent,omitempty"`
	Volume        *float64 `json:"volume,omitempty"`
	Timestamp     int64    `json:"timestamp"` // unix milli, fetch time (not provider trade time)
}

// StockRecord is the durable symbol-keyed record the sink upserts. Only the
// market-data fields live here; the record is created if absent and never
// deleted by this system.
type StockRecord struct {
	Symbol        string   `json:"symbol"`
	Price         float64  `json:"price"`
	Change        *float64 `json:"change,omitempty"`
	ChangePercent *float64 `json:"changePercent,omitempty"`
	Volume        *float64 `json:"volume,omitempty"`
	LastUpdated   int64    `json:"lastUpdated"` // unix milli
}

// RecordFromQuote maps a fetched quote onto the persisted shape.
func RecordFromQuote(q Quote) StockRecord {
	return StockRecord{
		Symbol:        q.Symbol,
		Price:         q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Volume:        q.Volume,
		LastUpdated:   q.Timestamp,
	}
}
