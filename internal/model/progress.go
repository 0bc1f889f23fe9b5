package model

import "time"

// ProgressKind enumerates live progress event types.
type ProgressKind string

const (
	ProgressQuizCompleted    ProgressKind = "quiz_completed"
	ProgressProblemCompleted ProgressKind = "problem_completed"
	ProgressSubmitted        ProgressKind = "submitted"
)

// ProgressEvent is published on a submission's channel each time its record
// advances, for live monitoring.
type ProgressEvent struct {
	SubmissionID      string       `json:"submission_id"`
	Kind              ProgressKind `json:"kind"`
	SubTaskID         string       `json:"sub_task_id,omitempty"`
	CompletedQuizzes  int          `json:"completed_quizzes"`
	CompletedProblems int          `json:"completed_problems"`
	TotalQuizzes      int          `json:"total_quizzes"`
	TotalProblems     int          `json:"total_problems"`
	FinalScore        *float64     `json:"final_score,omitempty"`
	At                time.Time    `json:"at"`
}
