package model

import (
	"time"

	"github.com/google/uuid"
)

// TestSet is a named collection of quiz and coding-problem identifiers
// forming one assessment. Quiz scoring and code judging happen in external
// services; this definition only fixes which sub-tasks exist and the time
// limit, if any.
type TestSet struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	QuizIDs          []string  `json:"quiz_ids"`
	ProblemIDs       []string  `json:"problem_ids"`
	TimeLimitMinutes int       `json:"time_limit_minutes"` // 0 = untimed
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasQuiz reports whether the quiz id belongs to this test-set.
func (t *TestSet) HasQuiz(quizID string) bool {
	for _, id := range t.QuizIDs {
		if id == quizID {
			return true
		}
	}
	return false
}

// HasProblem reports whether the coding-problem id belongs to this test-set.
func (t *TestSet) HasProblem(problemID string) bool {
	for _, id := range t.ProblemIDs {
		if id == problemID {
			return true
		}
	}
	return false
}

// CreateTestSetRequest is the payload for defining a new test-set.
type CreateTestSetRequest struct {
	Title            string   `json:"title" binding:"required,min=3,max=255"`
	QuizIDs          []string `json:"quiz_ids" binding:"omitempty,dive,min=1,max=64"`
	ProblemIDs       []string `json:"problem_ids" binding:"omitempty,dive,min=1,max=64"`
	TimeLimitMinutes int      `json:"time_limit_minutes" binding:"omitempty,min=0,max=480"`
}

// RecordQuizCompletionRequest carries the score the quiz grading service
// produced for a finished quiz. Pointer so an explicit 0 passes "required".
type RecordQuizCompletionRequest struct {
	Score *float64 `json:"score" binding:"required,min=0,max=100"`
}

// RecordProblemCompletionRequest carries the judge verdict for a finished
// coding problem.
type RecordProblemCompletionRequest struct {
	Passed *bool `json:"passed" binding:"required"`
}
