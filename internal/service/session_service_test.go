package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/skillgate/assess-backend/internal/model"
	"github.com/skillgate/assess-backend/internal/session"
	"github.com/skillgate/assess-backend/internal/store"
)

// fakeTestSets serves definitions from memory and can simulate an outage.
type fakeTestSets struct {
	sets map[uuid.UUID]*model.TestSet
	err  error
}

func (f *fakeTestSets) GetByID(_ context.Context, id uuid.UUID) (*model.TestSet, error) {
	if f.err != nil {
		return nil, f.err
	}
	ts, ok := f.sets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ts, nil
}

// fakeBus records side-band traffic.
type fakeBus struct {
	deadlines map[string]time.Time
	events    []model.ProgressEvent
	archived  []*session.Record
}

func newFakeBus() *fakeBus {
	return &fakeBus{deadlines: make(map[string]time.Time)}
}

func (b *fakeBus) TrackDeadline(_ context.Context, id string, deadline time.Time) error {
	b.deadlines[id] = deadline
	return nil
}

func (b *fakeBus) ClearDeadline(_ context.Context, id string) error {
	delete(b.deadlines, id)
	return nil
}

func (b *fakeBus) OverdueSubmissions(_ context.Context, now time.Time) ([]string, error) {
	var ids []string
	for id, deadline := range b.deadlines {
		if !deadline.After(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (b *fakeBus) PublishProgress(_ context.Context, ev model.ProgressEvent) error {
	b.events = append(b.events, ev)
	return nil
}

func (b *fakeBus) EnqueueArchive(_ context.Context, rec *session.Record) error {
	b.archived = append(b.archived, rec)
	return nil
}

// failingKV wraps a KV and fails writes on demand.
type failingKV struct {
	store.KV
	failSet bool
}

var errDiskGone = errors.New("backing store unavailable")

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if f.failSet {
		return errDiskGone
	}
	return f.KV.Set(ctx, key, value)
}

type fixture struct {
	svc   *SessionService
	bus   *fakeBus
	kv    *failingKV
	sets  *fakeTestSets
	setID uuid.UUID
	now   time.Time
}

func newFixture(t *testing.T, timeLimit int) *fixture {
	t.Helper()

	setID := uuid.New()
	sets := &fakeTestSets{sets: map[uuid.UUID]*model.TestSet{
		setID: {
			ID:               setID,
			Title:            "Backend Screening",
			QuizIDs:          []string{"q1", "q2"},
			ProblemIDs:       []string{"p1", "p2"},
			TimeLimitMinutes: timeLimit,
		},
	}}

	kv := &failingKV{KV: store.NewMemoryKV()}
	bus := newFakeBus()
	svc := NewSessionService(store.NewSessionStore(kv, zerolog.Nop()), sets, bus, session.DefaultWeights, zerolog.Nop())

	f := &fixture{svc: svc, bus: bus, kv: kv, sets: sets, setID: setID, now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc.now = func() time.Time { return f.now }
	return f
}

func TestStartSessionCreatesRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 90)

	rec, err := f.svc.StartSession(ctx, "cand-1", f.setID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if rec.SubmissionID == "" {
		t.Fatal("no submission id issued")
	}
	if rec.TotalQuizzes != 2 || rec.TotalCodingProblems != 2 {
		t.Fatalf("totals = %d/%d, want 2/2", rec.TotalQuizzes, rec.TotalCodingProblems)
	}
	if rec.Submitted {
		t.Fatal("new session already submitted")
	}

	// Persisted and resumable immediately.
	loaded, err := f.svc.GetSnapshot(ctx, "cand-1", rec.SubmissionID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if loaded.SubmissionID != rec.SubmissionID {
		t.Fatal("snapshot does not match started session")
	}

	// Timed test-set entered the deadline index at start + 90m.
	deadline, ok := f.bus.deadlines[rec.SubmissionID]
	if !ok {
		t.Fatal("deadline not tracked")
	}
	if want := f.now.Add(90 * time.Minute); !deadline.Equal(want) {
		t.Fatalf("deadline = %v, want %v", deadline, want)
	}
}

func TestStartSessionUnknownTestSet(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.svc.StartSession(context.Background(), "cand-1", uuid.New())
	if !errors.Is(err, ErrTestSetNotFound) {
		t.Fatalf("expected ErrTestSetNotFound, got %v", err)
	}
}

func TestFullFlowExampleScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	rec, err := f.svc.StartSession(ctx, "cand-1", f.setID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	id := rec.SubmissionID

	if _, err := f.svc.RecordQuizCompletion(ctx, "cand-1", id, "q1", 80); err != nil {
		t.Fatalf("q1: %v", err)
	}
	if _, err := f.svc.RecordProblemCompletion(ctx, "cand-1", id, "p1", true); err != nil {
		t.Fatalf("p1: %v", err)
	}
	if _, err := f.svc.RecordQuizCompletion(ctx, "cand-1", id, "q2", 60); err != nil {
		t.Fatalf("q2: %v", err)
	}

	f.now = f.now.Add(45 * time.Minute)
	final, err := f.svc.SubmitSession(ctx, "cand-1", id)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if final.TotalQuizScore != 70 {
		t.Fatalf("quiz aggregate = %v, want 70", final.TotalQuizScore)
	}
	if final.FinalScore == nil || *final.FinalScore != 60 {
		t.Fatalf("final score = %v, want 60", final.FinalScore)
	}
	if !final.Submitted || final.EndAt == nil {
		t.Fatal("record not finalized")
	}
	if *final.ActualDuration != 45 {
		t.Fatalf("duration = %d, want 45", *final.ActualDuration)
	}

	// Late completion for the skipped problem is rejected and the frozen
	// record is untouched.
	if _, err := f.svc.RecordProblemCompletion(ctx, "cand-1", id, "p2", true); !errors.Is(err, session.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
	frozen, err := f.svc.GetSnapshot(ctx, "cand-1", id)
	if err != nil {
		t.Fatalf("snapshot after reject: %v", err)
	}
	if *frozen.FinalScore != 60 || frozen.TotalPassedCodingProblems != 1 {
		t.Fatal("frozen record was altered by rejected completion")
	}

	// Submitted once only; finalized record was queued for archiving.
	if _, err := f.svc.SubmitSession(ctx, "cand-1", id); !errors.Is(err, session.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted on double submit, got %v", err)
	}
	if len(f.bus.archived) != 1 {
		t.Fatalf("archived %d records, want 1", len(f.bus.archived))
	}
}

func TestRecordCompletionIdempotentThroughPersistence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	rec, _ := f.svc.StartSession(ctx, "cand-1", f.setID)
	id := rec.SubmissionID

	first, err := f.svc.RecordQuizCompletion(ctx, "cand-1", id, "q1", 80)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := f.svc.RecordQuizCompletion(ctx, "cand-1", id, "q1", 80)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if second.TotalQuizScore != first.TotalQuizScore || len(second.CompletedQuizIDs) != 1 {
		t.Fatal("repeated completion changed the record")
	}
}

func TestRecordCompletionUnknownSubTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	rec, _ := f.svc.StartSession(ctx, "cand-1", f.setID)

	if _, err := f.svc.RecordQuizCompletion(ctx, "cand-1", rec.SubmissionID, "q999", 50); !errors.Is(err, ErrUnknownSubTask) {
		t.Fatalf("expected ErrUnknownSubTask, got %v", err)
	}
	if _, err := f.svc.RecordProblemCompletion(ctx, "cand-1", rec.SubmissionID, "nope", true); !errors.Is(err, ErrUnknownSubTask) {
		t.Fatalf("expected ErrUnknownSubTask, got %v", err)
	}
}

func TestOwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	rec, _ := f.svc.StartSession(ctx, "cand-1", f.setID)

	if _, err := f.svc.GetSnapshot(ctx, "cand-2", rec.SubmissionID); !errors.Is(err, ErrNotSessionOwner) {
		t.Fatalf("expected ErrNotSessionOwner, got %v", err)
	}
	if _, err := f.svc.SubmitSession(ctx, "cand-2", rec.SubmissionID); !errors.Is(err, ErrNotSessionOwner) {
		t.Fatalf("expected ErrNotSessionOwner, got %v", err)
	}
}

func TestAbsentSessionSurfacesNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	if _, err := f.svc.GetSnapshot(ctx, "cand-1", "never-started"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := f.svc.SubmitSession(ctx, "cand-1", "never-started"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := f.svc.RecordQuizCompletion(ctx, "cand-1", "never-started", "q1", 50); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSubmitSurfacesPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	rec, _ := f.svc.StartSession(ctx, "cand-1", f.setID)
	f.kv.failSet = true

	if _, err := f.svc.SubmitSession(ctx, "cand-1", rec.SubmissionID); !errors.Is(err, errDiskGone) {
		t.Fatalf("expected persistence failure to propagate, got %v", err)
	}

	// The durable record must still be in progress: the in-memory result of
	// a failed write never becomes the visible state.
	f.kv.failSet = false
	loaded, err := f.svc.GetSnapshot(ctx, "cand-1", rec.SubmissionID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if loaded.Submitted {
		t.Fatal("record marked submitted despite failed write")
	}
}

func TestGetSessionStateResume(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	rec, _ := f.svc.StartSession(ctx, "cand-1", f.setID)
	id := rec.SubmissionID
	f.svc.RecordQuizCompletion(ctx, "cand-1", id, "q1", 80)
	f.svc.RecordProblemCompletion(ctx, "cand-1", id, "p2", false)

	f.now = f.now.Add(65 * time.Minute)
	state, err := f.svc.GetSessionState(ctx, "cand-1", id)
	if err != nil {
		t.Fatalf("state: %v", err)
	}

	if len(state.RemainingQuizIDs) != 1 || state.RemainingQuizIDs[0] != "q2" {
		t.Fatalf("remaining quizzes = %v, want [q2]", state.RemainingQuizIDs)
	}
	if len(state.RemainingProblems) != 1 || state.RemainingProblems[0] != "p1" {
		t.Fatalf("remaining problems = %v, want [p1]", state.RemainingProblems)
	}
	if state.ElapsedMinutes != 65 || state.ElapsedDisplay != "1h 5m" {
		t.Fatalf("elapsed = %d (%q), want 65 (1h 5m)", state.ElapsedMinutes, state.ElapsedDisplay)
	}
}

func TestGetSessionStateFailsWhenDefinitionSourceDown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	rec, _ := f.svc.StartSession(ctx, "cand-1", f.setID)
	f.svc.RecordProblemCompletion(ctx, "cand-1", rec.SubmissionID, "p1", true)

	// With the definition source unreachable, the resume call must fail
	// rather than report empty remaining sets for a session with open
	// sub-tasks.
	errDown := errors.New("connection refused")
	f.sets.err = errDown

	state, err := f.svc.GetSessionState(ctx, "cand-1", rec.SubmissionID)
	if err == nil {
		t.Fatalf("resume succeeded with remaining %v/%v while the definition source was down",
			state.RemainingQuizIDs, state.RemainingProblems)
	}
	if !errors.Is(err, errDown) {
		t.Fatalf("expected the source error to propagate, got %v", err)
	}

	// The source coming back restores the real remaining sets.
	f.sets.err = nil
	state, err = f.svc.GetSessionState(ctx, "cand-1", rec.SubmissionID)
	if err != nil {
		t.Fatalf("state after recovery: %v", err)
	}
	if len(state.RemainingQuizIDs) != 2 || len(state.RemainingProblems) != 1 {
		t.Fatalf("remaining = %v/%v, want 2 quizzes and 1 problem",
			state.RemainingQuizIDs, state.RemainingProblems)
	}
}

func TestExpireOverdue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 30)

	rec, _ := f.svc.StartSession(ctx, "cand-1", f.setID)
	f.svc.RecordQuizCompletion(ctx, "cand-1", rec.SubmissionID, "q1", 100)

	// Not yet due.
	f.now = f.now.Add(20 * time.Minute)
	if n := f.svc.ExpireOverdue(ctx); n != 0 {
		t.Fatalf("expired %d sessions before deadline", n)
	}

	// Past the 30 minute limit.
	f.now = f.now.Add(15 * time.Minute)
	if n := f.svc.ExpireOverdue(ctx); n != 1 {
		t.Fatalf("expired %d sessions, want 1", n)
	}

	final, err := f.svc.GetSnapshot(ctx, "cand-1", rec.SubmissionID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !final.Submitted {
		t.Fatal("overdue session not submitted")
	}
	if _, tracked := f.bus.deadlines[rec.SubmissionID]; tracked {
		t.Fatal("deadline entry not cleared after auto-submit")
	}

	// The sweep is idempotent.
	if n := f.svc.ExpireOverdue(ctx); n != 0 {
		t.Fatalf("second sweep expired %d sessions", n)
	}
}
