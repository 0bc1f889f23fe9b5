package session

// MarkQuizComplete returns a copy of the record with the quiz recorded as
// complete and its score folded into the quiz aggregate. Marking a quiz that
// is already complete is a no-op: the id set, the stored score and the
// aggregate are left exactly as they were, so repeated or out-of-order
// completion signals cannot double-count.
func MarkQuizComplete(rec *Record, quizID string, score float64) (*Record, error) {
	if rec.Submitted {
		return rec, ErrAlreadySubmitted
	}

	out := rec.Clone()
	if out.HasQuiz(quizID) {
		return out, nil
	}

	out.CompletedQuizIDs = append(out.CompletedQuizIDs, quizID)
	out.QuizScores[quizID] = clampPercent(score)
	out.TotalQuizScore = QuizAverage(out)

	return out, nil
}

// MarkProblemComplete returns a copy of the record with the coding problem
// recorded as complete. A passing outcome increments the passed counter;
// re-marking a finished problem changes nothing, whatever the new outcome.
func MarkProblemComplete(rec *Record, problemID string, passed bool) (*Record, error) {
	if rec.Submitted {
		return rec, ErrAlreadySubmitted
	}

	out := rec.Clone()
	if out.HasProblem(problemID) {
		return out, nil
	}

	out.CompletedProblemIDs = append(out.CompletedProblemIDs, problemID)
	if passed {
		out.TotalPassedCodingProblems++
	}

	return out, nil
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
