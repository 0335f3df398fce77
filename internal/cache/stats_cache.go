package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatsCache counts response lifecycle events per form in Redis sorted sets
type StatsCache interface {
	RecordStarted(ctx context.Context, formID string) error
	RecordSubmitted(ctx context.Context, formID string) error
	Top(ctx context.Context, limit int) ([]FormStats, error)
}

// FormStats is one row of the supervisor stats table
type FormStats struct {
	FormID    string `json:"formId"`
	Started   int64  `json:"started"`
	Submitted int64  `json:"submitted"`
	Rank      int    `json:"rank"`
}

const (
	startedKey   = "stats:responses:started"
	submittedKey = "stats:responses:submitted"
)

type statsCache struct {
	client *redis.Client
}

// NewStatsCache creates a new stats cache
func NewStatsCache(client *redis.Client) StatsCache {
	return &statsCache{
		client: client,
	}
}

func (c *statsCache) RecordStarted(ctx context.Context, formID string) error {
	return c.client.ZIncrBy(ctx, startedKey, 1, formID).Err()
}

func (c *statsCache) RecordSubmitted(ctx context.Context, formID string) error {
	return c.client.ZIncrBy(ctx, submittedKey, 1, formID).Err()
}

// Top returns forms ordered by submissions, most first
func (c *statsCache) Top(ctx context.Context, limit int) ([]FormStats, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, submittedKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	pipe := c.client.Pipeline()
	started := make([]*redis.FloatCmd, len(results))
	for i, z := range results {
		started[i] = pipe.ZScore(ctx, startedKey, z.Member.(string))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	entries := make([]FormStats, len(results))
	for i, z := range results {
		s, _ := started[i].Result()
		entries[i] = FormStats{
			FormID:    z.Member.(string),
			Started:   int64(s),
			Submitted: int64(z.Score),
			Rank:      i + 1,
		}
	}
	return entries, nil
}
