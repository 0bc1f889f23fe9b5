package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/skillgate/assess-backend/internal/config"
	"github.com/skillgate/assess-backend/internal/model"
	"github.com/skillgate/assess-backend/internal/session"
)

// RedisBus carries the side-band signals around the session core: the
// deadline index consumed by the sweep worker, live progress pub/sub for
// monitors, and the archive queue drained into Postgres.
type RedisBus struct {
	rdb *redis.Client
}

// NewRedisBus wraps a Redis client as a signal bus.
func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

// TrackDeadline registers a timed session in the deadline index, scored by
// its expiry instant.
func (b *RedisBus) TrackDeadline(ctx context.Context, submissionID string, deadline time.Time) error {
	return b.rdb.ZAdd(ctx, config.CacheKey.SubmissionDeadlineIndex(), redis.Z{
		Score:  float64(deadline.Unix()),
		Member: submissionID,
	}).Err()
}

// ClearDeadline removes a session from the deadline index.
func (b *RedisBus) ClearDeadline(ctx context.Context, submissionID string) error {
	return b.rdb.ZRem(ctx, config.CacheKey.SubmissionDeadlineIndex(), submissionID).Err()
}

// OverdueSubmissions returns ids whose deadline is at or before now.
func (b *RedisBus) OverdueSubmissions(ctx context.Context, now time.Time) ([]string, error) {
	return b.rdb.ZRangeByScore(ctx, config.CacheKey.SubmissionDeadlineIndex(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.Unix()),
	}).Result()
}

// PublishProgress broadcasts a progress event on the submission's channel.
func (b *RedisBus) PublishProgress(ctx context.Context, ev model.ProgressEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}
	return b.rdb.Publish(ctx, config.CacheKey.SubmissionProgressChannel(ev.SubmissionID), payload).Err()
}

// EnqueueArchive queues a finalized record for the archive worker.
func (b *RedisBus) EnqueueArchive(ctx context.Context, rec *session.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal archive payload: %w", err)
	}
	return b.rdb.RPush(ctx, config.WorkerKey.ArchiveResultsQueue, payload).Err()
}
