package session

import "time"

// Weights fixes how quiz and coding contributions combine into the final
// score. Both are percentages in [0, 100]; the weights must sum to 1.
// This is deployment configuration, not a per-session choice, because it
// directly determines pass/fail outcomes.
type Weights struct {
	Quiz   float64
	Coding float64
}

// DefaultWeights is the documented equal-weighting policy.
var DefaultWeights = Weights{Quiz: 0.5, Coding: 0.5}

// NewWeights builds Weights from the configured quiz share.
func NewWeights(quizWeight float64) Weights {
	if quizWeight < 0 || quizWeight > 1 {
		return DefaultWeights
	}
	return Weights{Quiz: quizWeight, Coding: 1 - quizWeight}
}

// QuizAverage is the arithmetic mean of the stored per-quiz percentages.
// Scores come from the external grading service at completion time and are
// never recomputed from raw answers here. An empty set yields 0.
func QuizAverage(rec *Record) float64 {
	if len(rec.QuizScores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range rec.QuizScores {
		sum += s
	}
	return sum / float64(len(rec.QuizScores))
}

// CodingRate is the passed/total coding success rate as a percentage.
// A test-set without coding problems short-circuits to 0.
func CodingRate(rec *Record) float64 {
	if rec.TotalCodingProblems == 0 {
		return 0
	}
	return float64(rec.TotalPassedCodingProblems) / float64(rec.TotalCodingProblems) * 100
}

// FinalScore combines the two contributions under the given weights.
// A category absent from the test-set definition drops out entirely instead
// of diluting the score: an all-quiz assessment is graded on quizzes alone.
// Pure and deterministic; calling it twice on the same record gives the same
// result.
func FinalScore(rec *Record, w Weights) float64 {
	switch {
	case rec.TotalQuizzes == 0 && rec.TotalCodingProblems == 0:
		return 0
	case rec.TotalCodingProblems == 0:
		return QuizAverage(rec)
	case rec.TotalQuizzes == 0:
		return CodingRate(rec)
	}
	return clampPercent(w.Quiz*QuizAverage(rec) + w.Coding*CodingRate(rec))
}

// Finalize returns a submitted copy of the record with the final score,
// end instant and actual duration set. Submitting twice is rejected and the
// original record is untouched.
func Finalize(rec *Record, w Weights, now time.Time) (*Record, error) {
	if rec.Submitted {
		return rec, ErrAlreadySubmitted
	}

	out := rec.Clone()

	score := FinalScore(out, w)
	duration := minutesBetween(out.StartTime, now.UnixMilli())

	out.FinalScore = &score
	out.Submitted = true
	out.EndAt = &now
	out.ActualDuration = &duration

	return out, nil
}
