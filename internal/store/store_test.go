package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/skillgate/assess-backend/internal/config"
	"github.com/skillgate/assess-backend/internal/session"
)

func newTestStore() (*SessionStore, *MemoryKV) {
	kv := NewMemoryKV()
	return NewSessionStore(kv, zerolog.Nop()), kv
}

// Resume fidelity: a record survives a save/load round trip unchanged, for
// any sequence of completions. This is what makes reload-and-resume safe.
func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore()

	rec := session.New("sub-42", "ts-1", "cand-9", 2, 2, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	rec, _ = session.MarkQuizComplete(rec, "q1", 80)
	rec, _ = session.MarkProblemComplete(rec, "p1", true)

	if err := st.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := st.Load(ctx, "sub-42")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !reflect.DeepEqual(rec, loaded) {
		t.Fatalf("round trip mismatch:\nsaved:  %+v\nloaded: %+v", rec, loaded)
	}
}

func TestLoadAbsent(t *testing.T) {
	st, _ := newTestStore()

	_, err := st.Load(context.Background(), "never-started")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadCorruptFailsClosed(t *testing.T) {
	ctx := context.Background()
	st, kv := newTestStore()

	cases := []struct {
		name    string
		payload string
	}{
		{"not json", "{{{ definitely not json"},
		{"wrong shape", `{"submissionId":""}`},
		{"passed exceeds total", `{"submissionId":"sub-1","testSetId":"ts-1","startTime":1,"totalCodingProblems":1,"totalPassedCodingProblems":5}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key := config.CacheKey.SubmissionRecordKey("sub-1")
			if err := kv.Set(ctx, key, tc.payload); err != nil {
				t.Fatalf("seed: %v", err)
			}

			_, err := st.Load(ctx, "sub-1")
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound for corrupt data, got %v", err)
			}
		})
	}
}

func TestSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore()

	rec := session.New("sub-1", "ts-1", "cand-1", 1, 1, time.Now())
	if err := st.Save(ctx, rec); err != nil {
		t.Fatalf("save initial: %v", err)
	}

	updated, _ := session.MarkQuizComplete(rec, "q1", 75)
	if err := st.Save(ctx, updated); err != nil {
		t.Fatalf("save updated: %v", err)
	}

	loaded, err := st.Load(ctx, "sub-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.HasQuiz("q1") {
		t.Fatal("overwrite lost the completion")
	}
}

func TestRecordKeyFormat(t *testing.T) {
	got := config.CacheKey.SubmissionRecordKey("abc-123")
	if got != "testset_submission_abc-123" {
		t.Fatalf("key = %q", got)
	}
}
