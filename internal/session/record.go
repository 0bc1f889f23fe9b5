package session

import (
	"errors"
	"time"
)

// Sentinel errors for illegal record transitions.
var (
	// ErrAlreadySubmitted is returned when a mutation targets a finalized
	// session. The record is never changed in that case.
	ErrAlreadySubmitted = errors.New("session already submitted")

	// ErrNotFinalized is returned when an operation requires a submitted
	// record but the session is still in progress.
	ErrNotFinalized = errors.New("session not finalized")
)

// Record is the persisted state of one candidate's attempt at a test-set.
// It is the single source of truth for resume-on-reload and for the
// read-only completed view; once Submitted is true the record is frozen.
type Record struct {
	SubmissionID string `json:"submissionId"`
	TestSetID    string `json:"testSetId"`
	CandidateID  string `json:"candidateId,omitempty"`

	// StartedAt is the wall-clock start instant. StartTime is the same
	// instant as Unix milliseconds; duration math uses it so results do not
	// depend on timestamp re-parsing across page loads or processes.
	StartedAt time.Time `json:"startedAt"`
	StartTime int64     `json:"startTime"`

	CompletedQuizIDs    []string `json:"completedQuizIds"`
	CompletedProblemIDs []string `json:"completedProblemIds"`

	// QuizScores keeps the percentage handed over by the grading service at
	// each quiz completion; TotalQuizScore is always the mean of its values,
	// which keeps re-marking idempotent regardless of arrival order.
	QuizScores     map[string]float64 `json:"quizScores"`
	TotalQuizScore float64            `json:"totalQuizScore"`

	TotalQuizzes              int `json:"totalQuizzes"`
	TotalCodingProblems       int `json:"totalCodingProblems"`
	TotalPassedCodingProblems int `json:"totalPassedCodingProblems"`

	FinalScore *float64 `json:"finalScore,omitempty"`
	Submitted  bool     `json:"submitted"`
	EndAt      *time.Time `json:"endAt,omitempty"`
	// ActualDuration is the precomputed attempt length in minutes, set at
	// finalization. When present it takes precedence over EndAt-based math.
	ActualDuration *int `json:"actualDuration,omitempty"`
}

// New creates the initial record for a freshly started session. The quiz and
// coding totals come from the test-set definition and fix the denominators
// used by the aggregator.
func New(submissionID, testSetID, candidateID string, totalQuizzes, totalCodingProblems int, now time.Time) *Record {
	return &Record{
		SubmissionID:        submissionID,
		TestSetID:           testSetID,
		CandidateID:         candidateID,
		StartedAt:           now,
		StartTime:           now.UnixMilli(),
		CompletedQuizIDs:    []string{},
		CompletedProblemIDs: []string{},
		QuizScores:          map[string]float64{},
		TotalQuizzes:        totalQuizzes,
		TotalCodingProblems: totalCodingProblems,
	}
}

// HasQuiz reports whether the quiz was already marked complete.
func (r *Record) HasQuiz(quizID string) bool {
	for _, id := range r.CompletedQuizIDs {
		if id == quizID {
			return true
		}
	}
	return false
}

// HasProblem reports whether the coding problem was already marked complete.
func (r *Record) HasProblem(problemID string) bool {
	for _, id := range r.CompletedProblemIDs {
		if id == problemID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Transition functions operate on copies so a
// failed persistence write never leaves a half-mutated record behind.
func (r *Record) Clone() *Record {
	c := *r

	c.CompletedQuizIDs = append([]string{}, r.CompletedQuizIDs...)
	c.CompletedProblemIDs = append([]string{}, r.CompletedProblemIDs...)

	c.QuizScores = make(map[string]float64, len(r.QuizScores))
	for id, score := range r.QuizScores {
		c.QuizScores[id] = score
	}

	if r.FinalScore != nil {
		v := *r.FinalScore
		c.FinalScore = &v
	}
	if r.EndAt != nil {
		t := *r.EndAt
		c.EndAt = &t
	}
	if r.ActualDuration != nil {
		d := *r.ActualDuration
		c.ActualDuration = &d
	}

	return &c
}

// Valid reports whether a deserialized record has the minimal shape required
// to act on it. Anything failing this is treated as corrupt (absent).
func (r *Record) Valid() bool {
	if r.SubmissionID == "" || r.TestSetID == "" || r.StartTime <= 0 {
		return false
	}
	if r.TotalPassedCodingProblems > r.TotalCodingProblems {
		return false
	}
	return true
}
