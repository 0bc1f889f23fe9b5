package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skillgate/assess-backend/internal/model"
	"github.com/skillgate/assess-backend/internal/repository"
)

// TestSetService handles test-set definition management and archived results.
type TestSetService struct {
	testSetRepo *repository.TestSetRepository
	resultRepo  *repository.ResultRepository
	log         zerolog.Logger
}

// NewTestSetService creates a new TestSetService.
func NewTestSetService(testSetRepo *repository.TestSetRepository, resultRepo *repository.ResultRepository, log zerolog.Logger) *TestSetService {
	return &TestSetService{
		testSetRepo: testSetRepo,
		resultRepo:  resultRepo,
		log:         log.With().Str("component", "testset_service").Logger(),
	}
}

// Create defines a new test-set from the request payload. Ids are
// deduplicated so a sloppy definition cannot skew the coding denominator.
func (s *TestSetService) Create(ctx context.Context, req *model.CreateTestSetRequest) (*model.TestSet, error) {
	ts := &model.TestSet{
		Title:            req.Title,
		QuizIDs:          dedupe(req.QuizIDs),
		ProblemIDs:       dedupe(req.ProblemIDs),
		TimeLimitMinutes: req.TimeLimitMinutes,
	}

	if err := s.testSetRepo.Create(ctx, ts); err != nil {
		return nil, fmt.Errorf("create test set: %w", err)
	}

	s.log.Info().
		Str("test_set_id", ts.ID.String()).
		Int("quizzes", len(ts.QuizIDs)).
		Int("problems", len(ts.ProblemIDs)).
		Msg("Test set created")

	return ts, nil
}

// Get retrieves one test-set definition.
func (s *TestSetService) Get(ctx context.Context, id uuid.UUID) (*model.TestSet, error) {
	return s.testSetRepo.GetByID(ctx, id)
}

// List retrieves test-set definitions with pagination.
func (s *TestSetService) List(ctx context.Context, page, perPage int) ([]model.TestSet, int64, error) {
	return s.testSetRepo.ListPaginated(ctx, page, perPage)
}

// ListResults retrieves archived results for a test-set with pagination.
func (s *TestSetService) ListResults(ctx context.Context, testSetID uuid.UUID, page, perPage int) ([]repository.SubmissionResult, int64, error) {
	return s.resultRepo.ListByTestSet(ctx, testSetID, page, perPage)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
