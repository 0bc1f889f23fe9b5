package session

import (
	"testing"
	"time"
)

// The scenario from the product sign-off: two quizzes and two coding
// problems, quiz scores 80 and 60, one passing problem, one skipped.
func TestFinalizeExampleScenario(t *testing.T) {
	rec := New("sub-1", "ts-1", "cand-1", 2, 2, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	var err error
	rec, err = MarkQuizComplete(rec, "q1", 80)
	if err != nil {
		t.Fatalf("q1: %v", err)
	}
	rec, err = MarkProblemComplete(rec, "p1", true)
	if err != nil {
		t.Fatalf("p1: %v", err)
	}
	rec, err = MarkQuizComplete(rec, "q2", 60)
	if err != nil {
		t.Fatalf("q2: %v", err)
	}

	if rec.TotalQuizScore != 70 {
		t.Fatalf("quiz aggregate = %v, want 70", rec.TotalQuizScore)
	}
	if got := CodingRate(rec); got != 50 {
		t.Fatalf("coding rate = %v, want 50", got)
	}

	end := time.Date(2026, 3, 10, 10, 5, 30, 0, time.UTC)
	final, err := Finalize(rec, DefaultWeights, end)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if final.FinalScore == nil || *final.FinalScore != 60 {
		t.Fatalf("final score = %v, want 60", final.FinalScore)
	}
	if !final.Submitted {
		t.Fatal("record not marked submitted")
	}
	if final.EndAt == nil || !final.EndAt.Equal(end) {
		t.Fatalf("endAt = %v, want %v", final.EndAt, end)
	}
	if final.ActualDuration == nil || *final.ActualDuration != 65 {
		t.Fatalf("actualDuration = %v, want 65", final.ActualDuration)
	}
}

func TestFinalizeTwiceRejected(t *testing.T) {
	rec := New("sub-1", "ts-1", "cand-1", 1, 0, time.Now())
	final, err := Finalize(rec, DefaultWeights, time.Now())
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	again, err := Finalize(final, DefaultWeights, time.Now().Add(time.Hour))
	if err != ErrAlreadySubmitted {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
	// The returned record must be the untouched original.
	if again.EndAt != final.EndAt || *again.FinalScore != *final.FinalScore {
		t.Fatal("finalized record was altered by second submission")
	}
}

func TestCodingRateZeroDenominator(t *testing.T) {
	rec := New("sub-1", "ts-1", "cand-1", 2, 0, time.Now())
	if got := CodingRate(rec); got != 0 {
		t.Fatalf("coding rate with no problems = %v, want 0", got)
	}
}

func TestFinalScoreCategoryDropout(t *testing.T) {
	now := time.Now()

	t.Run("quiz only", func(t *testing.T) {
		rec := New("s", "t", "c", 1, 0, now)
		rec, _ = MarkQuizComplete(rec, "q1", 90)
		if got := FinalScore(rec, DefaultWeights); got != 90 {
			t.Fatalf("quiz-only score = %v, want 90", got)
		}
	})

	t.Run("coding only", func(t *testing.T) {
		rec := New("s", "t", "c", 0, 2, now)
		rec, _ = MarkProblemComplete(rec, "p1", true)
		if got := FinalScore(rec, DefaultWeights); got != 50 {
			t.Fatalf("coding-only score = %v, want 50", got)
		}
	})

	t.Run("empty test set", func(t *testing.T) {
		rec := New("s", "t", "c", 0, 0, now)
		if got := FinalScore(rec, DefaultWeights); got != 0 {
			t.Fatalf("empty score = %v, want 0", got)
		}
	})
}

func TestFinalScoreBounds(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name    string
		scores  map[string]float64
		passed  int
		total   int
		weights Weights
	}{
		{"all perfect", map[string]float64{"q1": 100, "q2": 100}, 3, 3, DefaultWeights},
		{"all zero", map[string]float64{"q1": 0, "q2": 0}, 0, 3, DefaultWeights},
		{"skewed weights", map[string]float64{"q1": 100}, 1, 1, NewWeights(0.8)},
		{"mixed", map[string]float64{"q1": 33.3, "q2": 66.7}, 1, 2, DefaultWeights},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := New("s", "t", "c", len(tc.scores), tc.total, now)
			for id, score := range tc.scores {
				rec, _ = MarkQuizComplete(rec, id, score)
			}
			rec.TotalPassedCodingProblems = tc.passed

			got := FinalScore(rec, tc.weights)
			if got < 0 || got > 100 {
				t.Fatalf("final score %v out of [0,100]", got)
			}
		})
	}
}

func TestNewWeights(t *testing.T) {
	w := NewWeights(0.7)
	if w.Quiz != 0.7 || w.Coding != 0.3 {
		t.Fatalf("unexpected weights: %+v", w)
	}

	// Out-of-range input falls back to equal weighting.
	w = NewWeights(1.5)
	if w != DefaultWeights {
		t.Fatalf("expected default weights, got %+v", w)
	}
}

func TestFinalScoreDeterministic(t *testing.T) {
	rec := New("s", "t", "c", 3, 4, time.Now())
	rec, _ = MarkQuizComplete(rec, "q1", 55)
	rec, _ = MarkQuizComplete(rec, "q2", 78)
	rec, _ = MarkProblemComplete(rec, "p1", true)

	first := FinalScore(rec, DefaultWeights)
	for i := 0; i < 10; i++ {
		if got := FinalScore(rec, DefaultWeights); got != first {
			t.Fatalf("score changed between calls: %v vs %v", first, got)
		}
	}
}
