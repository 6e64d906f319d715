package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/HaydenEquityAi/stockmarket/pkg/models"
)

const (
	keyPrefix        = "stock:"
	historyKeyPrefix = "history:"
)

// Compile-time check to ensure RedisStore implements StockStore
var _ StockStore = (*RedisStore)(nil)

// RedisStore keeps the latest record per symbol as a JSON value at
// stock:<SYMBOL>. History lists at history:<SYMBOL> are maintained by the
// recorder service; this store only reads them.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) UpsertQuote(ctx context.Context, q models.Quote) error {
	rec := models.RecordFromQuote(q)
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+q.Symbol, payload, 0).Err(); err != nil {
		return fmt.Errorf("upsert %s: %w", q.Symbol, err)
	}
	return nil
}

// Snapshots fetches the latest persisted record for a list of symbols (MGET).
func (r *RedisStore) Snapshots(ctx context.Context, symbols []string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = keyPrefix + sym
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var snapshots []string
	for _, val := range results {
		if payload, ok := val.(string); ok && payload != "" {
			snapshots = append(snapshots, payload)
		}
	}
	return snapshots, nil
}

func (r *RedisStore) History(ctx context.Context, symbol string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.client.LRange(ctx, historyKeyPrefix+symbol, 0, int64(limit-1)).Result()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
