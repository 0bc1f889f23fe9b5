package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubmissionResult is the archived row for a finalized session, used for
// recruiter reporting. The Redis record stays the source of truth for the
// completed view; this table is the queryable copy.
type SubmissionResult struct {
	SubmissionID    uuid.UUID `json:"submission_id"`
	TestSetID       uuid.UUID `json:"test_set_id"`
	CandidateID     string    `json:"candidate_id"`
	FinalScore      float64   `json:"final_score"`
	QuizScore       float64   `json:"quiz_score"`
	PassedProblems  int       `json:"passed_problems"`
	TotalProblems   int       `json:"total_problems"`
	StartedAt       time.Time `json:"started_at"`
	EndAt           time.Time `json:"end_at"`
	DurationMinutes int       `json:"duration_minutes"`
}

// ResultRepository handles archived submission results.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// BulkInsert writes a batch of results in one statement. Replays of the same
// submission overwrite the prior row, so requeued archive payloads stay safe.
func (r *ResultRepository) BulkInsert(ctx context.Context, batch []SubmissionResult) error {
	n := len(batch)
	if n == 0 {
		return nil
	}

	subIDs := make([]uuid.UUID, 0, n)
	setIDs := make([]uuid.UUID, 0, n)
	candidates := make([]string, 0, n)
	finals := make([]float64, 0, n)
	quizzes := make([]float64, 0, n)
	passed := make([]int, 0, n)
	totals := make([]int, 0, n)
	startedAts := make([]time.Time, 0, n)
	endAts := make([]time.Time, 0, n)
	durations := make([]int, 0, n)

	for _, res := range batch {
		subIDs = append(subIDs, res.SubmissionID)
		setIDs = append(setIDs, res.TestSetID)
		candidates = append(candidates, res.CandidateID)
		finals = append(finals, res.FinalScore)
		quizzes = append(quizzes, res.QuizScore)
		passed = append(passed, res.PassedProblems)
		totals = append(totals, res.TotalProblems)
		startedAts = append(startedAts, res.StartedAt)
		endAts = append(endAts, res.EndAt)
		durations = append(durations, res.DurationMinutes)
	}

	query := `
		INSERT INTO submission_results (
			submission_id, test_set_id, candidate_id, final_score, quiz_score,
			passed_problems, total_problems, started_at, end_at, duration_minutes
		)
		SELECT * FROM UNNEST(
			$1::uuid[], $2::uuid[], $3::text[], $4::float8[], $5::float8[],
			$6::int[], $7::int[], $8::timestamptz[], $9::timestamptz[], $10::int[]
		)
		ON CONFLICT (submission_id) DO UPDATE
		SET final_score = EXCLUDED.final_score,
		    quiz_score = EXCLUDED.quiz_score,
		    passed_problems = EXCLUDED.passed_problems,
		    total_problems = EXCLUDED.total_problems,
		    end_at = EXCLUDED.end_at,
		    duration_minutes = EXCLUDED.duration_minutes
	`

	_, err := r.pool.Exec(ctx, query,
		subIDs, setIDs, candidates, finals, quizzes,
		passed, totals, startedAts, endAts, durations,
	)
	return err
}

// InsertSingle writes one result row; fallback path when a bulk write fails.
func (r *ResultRepository) InsertSingle(ctx context.Context, res SubmissionResult) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO submission_results (
			submission_id, test_set_id, candidate_id, final_score, quiz_score,
			passed_problems, total_problems, started_at, end_at, duration_minutes
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (submission_id) DO UPDATE
		 SET final_score = EXCLUDED.final_score,
		     quiz_score = EXCLUDED.quiz_score,
		     passed_problems = EXCLUDED.passed_problems,
		     total_problems = EXCLUDED.total_problems,
		     end_at = EXCLUDED.end_at,
		     duration_minutes = EXCLUDED.duration_minutes`,
		res.SubmissionID, res.TestSetID, res.CandidateID, res.FinalScore, res.QuizScore,
		res.PassedProblems, res.TotalProblems, res.StartedAt, res.EndAt, res.DurationMinutes,
	)
	return err
}

// ListByTestSet retrieves archived results for a test-set with pagination,
// best score first.
func (r *ResultRepository) ListByTestSet(ctx context.Context, testSetID uuid.UUID, page, perPage int) ([]SubmissionResult, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submission_results WHERE test_set_id = $1`, testSetID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT submission_id, test_set_id, candidate_id, final_score, quiz_score,
		        passed_problems, total_problems, started_at, end_at, duration_minutes
		 FROM submission_results
		 WHERE test_set_id = $1
		 ORDER BY final_score DESC, end_at ASC
		 LIMIT $2 OFFSET $3`, testSetID, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []SubmissionResult
	for rows.Next() {
		var res SubmissionResult
		if err := rows.Scan(
			&res.SubmissionID, &res.TestSetID, &res.CandidateID, &res.FinalScore, &res.QuizScore,
			&res.PassedProblems, &res.TotalProblems, &res.StartedAt, &res.EndAt, &res.DurationMinutes,
		); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}
