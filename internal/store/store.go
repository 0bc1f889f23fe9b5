package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/skillgate/assess-backend/internal/config"
	"github.com/skillgate/assess-backend/internal/session"
)

// ErrNotFound signals that no usable record exists for a submission id.
// Corrupt payloads map to it as well: a record that cannot be parsed is
// treated as absent rather than resumed (fail closed).
var ErrNotFound = errors.New("session record not found")

// KV is the string-keyed durable storage the session store writes through.
// Get must return ErrNotFound for missing keys.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// SessionStore persists session records as JSON under
// testset_submission_<id> keys. Every Save is a full overwrite; callers
// follow a read-modify-write discipline so quick successive completions
// cannot lose each other's updates.
type SessionStore struct {
	kv  KV
	log zerolog.Logger
}

// NewSessionStore creates a SessionStore on top of the given KV.
func NewSessionStore(kv KV, log zerolog.Logger) *SessionStore {
	return &SessionStore{
		kv:  kv,
		log: log.With().Str("component", "session_store").Logger(),
	}
}

// Save durably stores the record, replacing any prior value for its id.
func (s *SessionStore) Save(ctx context.Context, rec *session.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	key := config.CacheKey.SubmissionRecordKey(rec.SubmissionID)
	if err := s.kv.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("write record %s: %w", rec.SubmissionID, err)
	}
	return nil
}

// Load retrieves the most recently saved record. Missing keys and payloads
// that fail to deserialize into a valid record both return ErrNotFound; the
// caller reacts to absence, typically by redirecting to a safe entry point.
func (s *SessionStore) Load(ctx context.Context, submissionID string) (*session.Record, error) {
	key := config.CacheKey.SubmissionRecordKey(submissionID)

	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read record %s: %w", submissionID, err)
	}

	rec := &session.Record{}
	if err := json.Unmarshal([]byte(raw), rec); err != nil {
		s.log.Warn().Err(err).Str("submission_id", submissionID).Msg("Corrupt session record, treating as absent")
		return nil, ErrNotFound
	}
	if !rec.Valid() {
		s.log.Warn().Str("submission_id", submissionID).Msg("Invalid session record shape, treating as absent")
		return nil, ErrNotFound
	}

	return rec, nil
}
