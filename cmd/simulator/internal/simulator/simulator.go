package simulator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/HaydenEquityAi/stockmarket/pkg/config"
	"github.com/HaydenEquityAi/stockmarket/pkg/models"
)

// QuoteSimulator produces synthetic quotes onto the firehose topic so the
// recorder pipeline can be exercised locally without a market-data API key.
// Prices random-walk around each ticker's configured base price.
type QuoteSimulator struct {
	logger  *zap.Logger
	writer  KafkaWriter
	tickers []config.Ticker
	rand    Rand
	clock   Clock
	lastTS  map[string]int64
}

func NewQuoteSimulator(
	logger *zap.Logger,
	writer KafkaWriter,
	tickers []config.Ticker,
	rnd Rand,
	clock Clock,
) *QuoteSimulator {
	return &QuoteSimulator{
		logger:  logger,
		writer:  writer,
		tickers: tickers,
		rand:    rnd,
		clock:   clock,
		lastTS:  make(map[string]int64),
	}
}

func (qs *QuoteSimulator) Run(ctx context.Context) {
	symbols := make([]string, len(qs.tickers))
	for i, t := range qs.tickers {
		symbols[i] = t.Symbol
	}
	qs.logger.Info("Simulator Started", zap.Strings("tickers", symbols))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if len(qs.tickers) == 0 {
				qs.clock.Sleep(1 * time.Second)
				continue
			}

			t := qs.tickers[qs.rand.Intn(len(qs.tickers))]
			fluctuation := (qs.rand.Float64() * 10) - 5
			price := t.BasePrice + fluctuation

			change := price - t.BasePrice
			changePercent := 0.0
			if t.BasePrice != 0 {
				changePercent = change / t.BasePrice * 100
			}

			// Strictly increasing timestamps per symbol, or the recorder
			// drops the tick as stale
			ts := qs.clock.Now().UnixMilli()
			if ts <= qs.lastTS[t.Symbol] {
				ts = qs.lastTS[t.Symbol] + 1
			}
			qs.lastTS[t.Symbol] = ts

			quote := models.Quote{
				Symbol:        t.Symbol,
				Price:         price,
				Change:        &change,
				ChangePercent: &changePercent,
				Timestamp:     ts,
			}

			payload, _ := json.Marshal(quote)

			err := qs.writer.WriteMessages(ctx, kafka.Message{
				Key:   []byte(t.Symbol),
				Value: payload,
			})

			if err != nil {
				qs.logger.Error("Kafka Write Error", zap.Error(err))
			}

			qs.clock.Sleep(100 * time.Millisecond)
		}
	}
}
