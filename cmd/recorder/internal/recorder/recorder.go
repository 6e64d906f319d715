package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/HaydenEquityAi/stockmarket/pkg/config"
	"github.com/HaydenEquityAi/stockmarket/pkg/models"
)

// Recorder drains the quote firehose into bounded per-symbol history lists
// (history:<SYMBOL>) that the dashboard's mini-charts read. Messages are
// sharded onto workers by symbol so each symbol's history stays in order.
type Recorder struct {
	cfg          *config.Config
	logger       *zap.Logger
	rdb          RedisClient
	reader       KafkaReader
	numWorkers   int
	historyDepth int
}

func NewRecorder(cfg *config.Config, logger *zap.Logger, rdb RedisClient, reader KafkaReader) *Recorder {
	numWorkers := cfg.Recorder.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}
	historyDepth := cfg.Recorder.HistoryDepth
	if historyDepth <= 0 {
		historyDepth = 500
	}
	return &Recorder{
		cfg:          cfg,
		logger:       logger,
		rdb:          rdb,
		reader:       reader,
		numWorkers:   numWorkers,
		historyDepth: historyDepth,
	}
}

func (r *Recorder) Run(ctx context.Context) error {
	workerChans := make([]chan []byte, r.numWorkers)
	var wg sync.WaitGroup

	for i := 0; i < r.numWorkers; i++ {
		workerChans[i] = make(chan []byte, 100)
		wg.Add(1)
		go r.worker(i, workerChans[i], &wg)
	}

	go func() {
		r.logger.Info("Recorder Started", zap.Int("workers", r.numWorkers))
		for {
			m, err := r.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				r.logger.Error("Kafka Read Error", zap.Error(err))
				continue
			}

			// Deterministic Sharding: Same symbol always goes to same worker
			workerID := getWorkerID(m.Key, r.numWorkers)

			select {
			case workerChans[workerID] <- m.Value:
			case <-ctx.Done():
				return
			default:
				r.logger.Warn("Dropping slow packet", zap.String("key", string(m.Key)), zap.Int("worker_id", workerID))
			}
		}
	}()

	<-ctx.Done()
	r.logger.Info("Shutdown signal received, stopping recorder...")

	for _, ch := range workerChans {
		close(ch)
	}
	r.logger.Info("Waiting for workers to drain...")
	wg.Wait()

	return nil
}

func (r *Recorder) worker(id int, msgs <-chan []byte, wg *sync.WaitGroup) {
	defer wg.Done()
	ctx := context.Background()

	// Stale-tick filter; only works because of deterministic sharding
	lastSeen := make(map[string]int64)

	for payload := range msgs {
		var q models.Quote
		if err := json.Unmarshal(payload, &q); err != nil {
			r.logger.Error("JSON Unmarshal Error", zap.Error(err))
			continue
		}
		if q.Symbol == "" {
			continue
		}

		if q.Timestamp <= lastSeen[q.Symbol] {
			r.logger.Debug("Skipping stale tick", zap.String("symbol", q.Symbol), zap.Int64("timestamp", q.Timestamp))
			continue
		}

		key := fmt.Sprintf("history:%s", q.Symbol)

		// Prepend and trim in one pipeline so the list stays bounded
		pipe := r.rdb.Pipeline()
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, int64(r.historyDepth-1))

		_, err := pipe.Exec(ctx)
		if err != nil {
			r.logger.Error("Redis Pipeline Error", zap.Error(err), zap.String("symbol", q.Symbol))
		} else {
			r.logger.Debug("Recorded", zap.String("symbol", q.Symbol), zap.Int("worker_id", id))
			lastSeen[q.Symbol] = q.Timestamp
		}
	}
}

func getWorkerID(key []byte, numWorkers int) int {
	h := fnv.New32a()
	h.Write(key)
	return int(h.Sum32()) % numWorkers
}
