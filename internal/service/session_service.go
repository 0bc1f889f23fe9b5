package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/skillgate/assess-backend/internal/model"
	"github.com/skillgate/assess-backend/internal/session"
	"github.com/skillgate/assess-backend/internal/store"
)

// Orchestrator-boundary errors. Everything the state machine can reject is a
// sentinel here so handlers can map it to a specific response code instead of
// letting anything escape uncaught.
var (
	ErrSessionNotFound = store.ErrNotFound
	ErrTestSetNotFound = errors.New("test set not found")
	ErrUnknownSubTask  = errors.New("sub-task is not part of this test set")
	ErrNotSessionOwner = errors.New("session belongs to another candidate")
)

// TestSetSource resolves test-set definitions. Satisfied by
// repository.TestSetRepository in production.
type TestSetSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.TestSet, error)
}

// Bus carries side-band signals out of the orchestrator: deadline tracking
// for timed sessions, live progress events, and the archive queue. All bus
// traffic is best-effort; only the session store write decides success.
type Bus interface {
	TrackDeadline(ctx context.Context, submissionID string, deadline time.Time) error
	ClearDeadline(ctx context.Context, submissionID string) error
	OverdueSubmissions(ctx context.Context, now time.Time) ([]string, error)
	PublishProgress(ctx context.Context, ev model.ProgressEvent) error
	EnqueueArchive(ctx context.Context, rec *session.Record) error
}

// SessionService is the session orchestrator: it owns the
// NotStarted → InProgress → Submitted lifecycle, loading the record, applying
// a pure transition and persisting the result on every signal.
type SessionService struct {
	sessions *store.SessionStore
	testSets TestSetSource
	bus      Bus
	weights  session.Weights
	log      zerolog.Logger
	now      func() time.Time
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessions *store.SessionStore,
	testSets TestSetSource,
	bus Bus,
	weights session.Weights,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		testSets: testSets,
		bus:      bus,
		weights:  weights,
		log:      log.With().Str("component", "session_service").Logger(),
		now:      time.Now,
	}
}

// SessionState is the resume payload: the record plus what the front-end
// needs to restore its view after a reload — which sub-tasks are still open
// and how much time has gone by.
type SessionState struct {
	Record            *session.Record `json:"record"`
	RemainingQuizIDs  []string        `json:"remaining_quiz_ids"`
	RemainingProblems []string        `json:"remaining_problem_ids"`
	ElapsedMinutes    int             `json:"elapsed_minutes"`
	ElapsedDisplay    string          `json:"elapsed_display"`
}

// StartSession creates and persists the initial record for a test-set
// attempt, issuing a fresh submission id. Timed test-sets are entered into
// the deadline index for auto-submission.
func (s *SessionService) StartSession(ctx context.Context, candidateID string, testSetID uuid.UUID) (*session.Record, error) {
	ts, err := s.getTestSet(ctx, testSetID)
	if err != nil {
		return nil, err
	}

	submissionID := uuid.New().String()
	rec := session.New(submissionID, testSetID.String(), candidateID, len(ts.QuizIDs), len(ts.ProblemIDs), s.now())

	if err := s.sessions.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist new session: %w", err)
	}

	if deadline, ok := session.Deadline(rec, ts.TimeLimitMinutes); ok {
		if err := s.bus.TrackDeadline(ctx, submissionID, deadline); err != nil {
			// The session is already durable; a missing deadline entry only
			// delays auto-submission until the candidate submits manually.
			s.log.Warn().Err(err).Str("submission_id", submissionID).Msg("Failed to track deadline")
		}
	}

	s.log.Info().
		Str("submission_id", submissionID).
		Str("test_set_id", testSetID.String()).
		Str("candidate_id", candidateID).
		Msg("Session started")

	return rec, nil
}

// RecordQuizCompletion marks a quiz done with the score the grading service
// returned. Repeated or out-of-order signals are harmless; completions
// against a submitted session are rejected with the record unchanged.
// candidateID "" skips the ownership check (system-internal callers).
func (s *SessionService) RecordQuizCompletion(ctx context.Context, candidateID, submissionID, quizID string, score float64) (*session.Record, error) {
	rec, ts, err := s.loadOwned(ctx, candidateID, submissionID)
	if err != nil {
		return nil, err
	}
	if !ts.HasQuiz(quizID) {
		return nil, ErrUnknownSubTask
	}

	updated, err := session.MarkQuizComplete(rec, quizID, score)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("persist quiz completion: %w", err)
	}

	s.publishProgress(ctx, updated, model.ProgressQuizCompleted, quizID)
	return updated, nil
}

// RecordProblemCompletion marks a coding problem done with the judge
// verdict. Same idempotence and rejection rules as quiz completions.
func (s *SessionService) RecordProblemCompletion(ctx context.Context, candidateID, submissionID, problemID string, passed bool) (*session.Record, error) {
	rec, ts, err := s.loadOwned(ctx, candidateID, submissionID)
	if err != nil {
		return nil, err
	}
	if !ts.HasProblem(problemID) {
		return nil, ErrUnknownSubTask
	}

	updated, err := session.MarkProblemComplete(rec, problemID, passed)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("persist problem completion: %w", err)
	}

	s.publishProgress(ctx, updated, model.ProgressProblemCompleted, problemID)
	return updated, nil
}

// GetSnapshot returns the read-only record for a submission: the resume path
// after a reload and the data source for the completed view. Absent or
// corrupt records surface ErrSessionNotFound for the caller to redirect on.
func (s *SessionService) GetSnapshot(ctx context.Context, candidateID, submissionID string) (*session.Record, error) {
	rec, err := s.sessions.Load(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if candidateID != "" && rec.CandidateID != candidateID {
		return nil, ErrNotSessionOwner
	}
	return rec, nil
}

// GetSessionState builds the resume payload for an in-progress (or
// completed) session. A definition source that cannot be consulted fails the
// whole call: a resume payload claiming nothing remains would be a lie.
func (s *SessionService) GetSessionState(ctx context.Context, candidateID, submissionID string) (*SessionState, error) {
	rec, err := s.GetSnapshot(ctx, candidateID, submissionID)
	if err != nil {
		return nil, err
	}

	setID, err := uuid.Parse(rec.TestSetID)
	if err != nil {
		return nil, fmt.Errorf("record has malformed test set id %q: %w", rec.TestSetID, err)
	}
	ts, err := s.getTestSet(ctx, setID)
	if err != nil {
		return nil, err
	}

	state := &SessionState{
		Record:            rec,
		RemainingQuizIDs:  []string{},
		RemainingProblems: []string{},
	}
	for _, id := range ts.QuizIDs {
		if !rec.HasQuiz(id) {
			state.RemainingQuizIDs = append(state.RemainingQuizIDs, id)
		}
	}
	for _, id := range ts.ProblemIDs {
		if !rec.HasProblem(id) {
			state.RemainingProblems = append(state.RemainingProblems, id)
		}
	}

	state.ElapsedMinutes = session.ElapsedMinutes(rec, s.now())
	state.ElapsedDisplay = session.FormatMinutes(state.ElapsedMinutes)
	return state, nil
}

// SubmitSession finalizes a session: computes the final score, freezes the
// record and persists it. A failed persistence write is returned to the
// caller — the candidate must not be told they are done when the record was
// not durably finalized. Submitting an absent or already-submitted session
// is a defined error, never silently ignored.
func (s *SessionService) SubmitSession(ctx context.Context, candidateID, submissionID string) (*session.Record, error) {
	rec, err := s.sessions.Load(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if candidateID != "" && rec.CandidateID != candidateID {
		return nil, ErrNotSessionOwner
	}

	final, err := session.Finalize(rec, s.weights, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Save(ctx, final); err != nil {
		return nil, fmt.Errorf("persist submission: %w", err)
	}

	if err := s.bus.ClearDeadline(ctx, submissionID); err != nil {
		s.log.Warn().Err(err).Str("submission_id", submissionID).Msg("Failed to clear deadline entry")
	}
	if err := s.bus.EnqueueArchive(ctx, final); err != nil {
		s.log.Error().Err(err).Str("submission_id", submissionID).Msg("Failed to enqueue result for archiving")
	}
	s.publishProgress(ctx, final, model.ProgressSubmitted, "")

	s.log.Info().
		Str("submission_id", submissionID).
		Float64("final_score", *final.FinalScore).
		Msg("Session submitted")

	return final, nil
}

// ExpireOverdue finalizes every in-progress session whose deadline has
// passed. Called by the deadline worker; expiry is an external trigger of
// the same InProgress → Submitted transition, not a separate state.
func (s *SessionService) ExpireOverdue(ctx context.Context) int {
	overdue, err := s.bus.OverdueSubmissions(ctx, s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list overdue sessions")
		return 0
	}

	expired := 0
	for _, submissionID := range overdue {
		_, err := s.SubmitSession(ctx, "", submissionID)
		switch {
		case err == nil:
			expired++
			s.log.Info().Str("submission_id", submissionID).Msg("Session auto-submitted on deadline")
		case errors.Is(err, session.ErrAlreadySubmitted), errors.Is(err, ErrSessionNotFound):
			// Stale index entry; drop it so it is not retried forever.
			if clearErr := s.bus.ClearDeadline(ctx, submissionID); clearErr != nil {
				s.log.Warn().Err(clearErr).Str("submission_id", submissionID).Msg("Failed to drop stale deadline entry")
			}
		default:
			// Persistence failures stay in the index; retried next sweep.
			s.log.Error().Err(err).Str("submission_id", submissionID).Msg("Deadline auto-submit failed")
		}
	}
	return expired
}

func (s *SessionService) loadOwned(ctx context.Context, candidateID, submissionID string) (*session.Record, *model.TestSet, error) {
	rec, err := s.sessions.Load(ctx, submissionID)
	if err != nil {
		return nil, nil, err
	}
	if candidateID != "" && rec.CandidateID != candidateID {
		return nil, nil, ErrNotSessionOwner
	}
	if rec.Submitted {
		return nil, nil, session.ErrAlreadySubmitted
	}

	setID, err := uuid.Parse(rec.TestSetID)
	if err != nil {
		return nil, nil, fmt.Errorf("record has malformed test set id %q: %w", rec.TestSetID, err)
	}
	ts, err := s.getTestSet(ctx, setID)
	if err != nil {
		return nil, nil, err
	}
	return rec, ts, nil
}

func (s *SessionService) getTestSet(ctx context.Context, id uuid.UUID) (*model.TestSet, error) {
	ts, err := s.testSets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestSetNotFound
		}
		return nil, fmt.Errorf("get test set: %w", err)
	}
	return ts, nil
}

func (s *SessionService) publishProgress(ctx context.Context, rec *session.Record, kind model.ProgressKind, subTaskID string) {
	ev := model.ProgressEvent{
		SubmissionID:      rec.SubmissionID,
		Kind:              kind,
		SubTaskID:         subTaskID,
		CompletedQuizzes:  len(rec.CompletedQuizIDs),
		CompletedProblems: len(rec.CompletedProblemIDs),
		TotalQuizzes:      rec.TotalQuizzes,
		TotalProblems:     rec.TotalCodingProblems,
		FinalScore:        rec.FinalScore,
		At:                s.now(),
	}
	if err := s.bus.PublishProgress(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("submission_id", rec.SubmissionID).Msg("Failed to publish progress event")
	}
}
