package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SubmissionRecordKey returns the storage key for a session record.
func (r *CacheKeyStruct) SubmissionRecordKey(submissionID string) string {
	return fmt.Sprintf("testset_submission_%s", submissionID)
}

// SubmissionProgressChannel returns the PubSub channel carrying a
// submission's live progress events.
func (r *CacheKeyStruct) SubmissionProgressChannel(submissionID string) string {
	return fmt.Sprintf("submission:%s:progress", submissionID)
}

// SubmissionDeadlineIndex is the sorted set of in-progress timed sessions,
// scored by their deadline as a Unix timestamp.
func (r *CacheKeyStruct) SubmissionDeadlineIndex() string {
	return "submission:deadlines"
}

var CacheKey = NewCacheKeyStruct()
