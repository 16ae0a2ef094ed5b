package pricingsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	lastRunKey   = "pricing:sync:last"
	recentRunKey = "pricing:sync:recent"
	recentRuns   = 20
)

// StatusStore keeps the latest sync results in Redis.
type StatusStore struct {
	client *redis.Client
}

// NewStatusStore constructs the store.
func NewStatusStore(client *redis.Client) *StatusStore {
	return &StatusStore{client: client}
}

// Save records result as the latest run and prepends it to the recent list.
func (s *StatusStore) Save(ctx context.Context, result Result) error {
	if s == nil || s.client == nil {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("pricingsync: encode status: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, lastRunKey, raw, 0)
	if result.Status != StatusRunning {
		pipe.LPush(ctx, recentRunKey, raw)
		pipe.LTrim(ctx, recentRunKey, 0, recentRuns-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pricingsync: save status: %w", err)
	}
	return nil
}

// Last returns the most recent run; ok is false before the first run.
func (s *StatusStore) Last(ctx context.Context) (Result, bool, error) {
	if s == nil || s.client == nil {
		return Result{}, false, nil
	}
	raw, err := s.client.Get(ctx, lastRunKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, fmt.Errorf("pricingsync: load status: %w", err)
	}
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, false, fmt.Errorf("pricingsync: decode status: %w", err)
	}
	return result, true, nil
}

// Recent returns up to limit finished runs, newest first.
func (s *StatusStore) Recent(ctx context.Context, limit int) ([]Result, error) {
	if s == nil || s.client == nil {
		return nil, nil
	}
	if limit <= 0 || limit > recentRuns {
		limit = recentRuns
	}
	raws, err := s.client.LRange(ctx, recentRunKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("pricingsync: list recent: %w", err)
	}
	results := make([]Result, 0, len(raws))
	for _, raw := range raws {
		var result Result
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			continue
		}
		results = append(results, result)
	}
	return results, nil
}
