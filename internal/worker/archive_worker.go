package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skillgate/assess-backend/internal/config"
	"github.com/skillgate/assess-backend/internal/repository"
	"github.com/skillgate/assess-backend/internal/session"
)

const (
	ArchiveBatchSize    = 50
	ArchiveBatchTimeout = 2 * time.Second
	ArchivePollTimeout  = 1 * time.Second
)

// ArchiveWorker drains finalized session records from the archive queue into
// the submission_results table.
type ArchiveWorker struct {
	resultRepo *repository.ResultRepository
	rdb        *redis.Client
	log        zerolog.Logger
}

func NewArchiveWorker(resultRepo *repository.ResultRepository, rdb *redis.Client, log zerolog.Logger) *ArchiveWorker {
	return &ArchiveWorker{
		resultRepo: resultRepo,
		rdb:        rdb,
		log:        log.With().Str("component", "archive_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ArchiveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ArchiveWorker started")

	batch := make([]repository.SubmissionResult, 0, ArchiveBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ArchiveBatchSize || time.Since(lastFlush) >= ArchiveBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ArchivePollTimeout, config.WorkerKey.ArchiveResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var rec session.Record
			if err := json.Unmarshal([]byte(item[1]), &rec); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			res, err := toResult(&rec)
			if err != nil {
				w.log.Error().Err(err).Str("submission_id", rec.SubmissionID).Msg("Unarchivable record, dropping")
				continue
			}

			batch = append(batch, res)
		}
	}
}

// toResult converts a finalized record into an archive row. Records that were
// never finalized or carry malformed ids cannot be archived.
func toResult(rec *session.Record) (repository.SubmissionResult, error) {
	var res repository.SubmissionResult

	subID, err := uuid.Parse(rec.SubmissionID)
	if err != nil {
		return res, err
	}
	setID, err := uuid.Parse(rec.TestSetID)
	if err != nil {
		return res, err
	}
	if rec.FinalScore == nil || rec.EndAt == nil {
		return res, session.ErrNotFinalized
	}

	res = repository.SubmissionResult{
		SubmissionID:   subID,
		TestSetID:      setID,
		CandidateID:    rec.CandidateID,
		FinalScore:     *rec.FinalScore,
		QuizScore:      rec.TotalQuizScore,
		PassedProblems: rec.TotalPassedCodingProblems,
		TotalProblems:  rec.TotalCodingProblems,
		StartedAt:      rec.StartedAt,
		EndAt:          *rec.EndAt,
	}
	if rec.ActualDuration != nil {
		res.DurationMinutes = *rec.ActualDuration
	}
	return res, nil
}

// ----------------------------------------------------------------
// Batch Upsert Wrapper
// ----------------------------------------------------------------

func (w *ArchiveWorker) flushSafe(ctx context.Context, batch []repository.SubmissionResult) {
	if len(batch) == 0 {
		return
	}

	if err := w.resultRepo.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk archive failed, using fallback")

		for _, res := range batch {
			if err := w.resultRepo.InsertSingle(ctx, res); err != nil {
				w.log.Error().Err(err).Str("submission_id", res.SubmissionID.String()).Msg("InsertSingle failed — requeueing")
				w.requeue(ctx, res)
			}
		}
		return
	}

	w.log.Debug().Int("count", len(batch)).Msg("Archived submission batch")
}

// requeue pushes the row back as a synthetic record so it is retried on the
// next drain.
func (w *ArchiveWorker) requeue(ctx context.Context, res repository.SubmissionResult) {
	final := res.FinalScore
	endAt := res.EndAt
	duration := res.DurationMinutes

	rec := session.Record{
		SubmissionID:              res.SubmissionID.String(),
		TestSetID:                 res.TestSetID.String(),
		CandidateID:               res.CandidateID,
		StartedAt:                 res.StartedAt,
		StartTime:                 res.StartedAt.UnixMilli(),
		TotalQuizScore:            res.QuizScore,
		TotalCodingProblems:       res.TotalProblems,
		TotalPassedCodingProblems: res.PassedProblems,
		FinalScore:                &final,
		Submitted:                 true,
		EndAt:                     &endAt,
		ActualDuration:            &duration,
	}

	raw, _ := json.Marshal(&rec)
	w.rdb.RPush(ctx, config.WorkerKey.ArchiveResultsQueue, raw)
}
