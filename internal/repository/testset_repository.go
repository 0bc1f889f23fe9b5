package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skillgate/assess-backend/internal/model"
)

// TestSetRepository handles test-set definition data access.
type TestSetRepository struct {
	pool *pgxpool.Pool
}

// NewTestSetRepository creates a new TestSetRepository.
func NewTestSetRepository(pool *pgxpool.Pool) *TestSetRepository {
	return &TestSetRepository{pool: pool}
}

// GetByID retrieves a test-set definition by its UUID.
func (r *TestSetRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TestSet, error) {
	t := &model.TestSet{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, quiz_ids, problem_ids, time_limit_minutes, created_at, updated_at
		 FROM test_sets WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.QuizIDs, &t.ProblemIDs, &t.TimeLimitMinutes, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new test-set definition.
func (r *TestSetRepository) Create(ctx context.Context, t *model.TestSet) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO test_sets (title, quiz_ids, problem_ids, time_limit_minutes)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		t.Title, t.QuizIDs, t.ProblemIDs, t.TimeLimitMinutes,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// ListPaginated retrieves test-set definitions, newest first.
func (r *TestSetRepository) ListPaginated(ctx context.Context, page, perPage int) ([]model.TestSet, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM test_sets`).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, quiz_ids, problem_ids, time_limit_minutes, created_at, updated_at
		 FROM test_sets
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sets []model.TestSet
	for rows.Next() {
		var t model.TestSet
		if err := rows.Scan(&t.ID, &t.Title, &t.QuizIDs, &t.ProblemIDs, &t.TimeLimitMinutes, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		sets = append(sets, t)
	}
	return sets, total, rows.Err()
}
