package domain

import "time"

// Verdict is the user's judgement on a prior pipeline result.
type Verdict string

const (
	VerdictAccept Verdict = "accept"
	VerdictReject Verdict = "reject"
	VerdictEdit   Verdict = "edit"
)

// FeedbackRecord is one piece of user input about a prior PipelineResult.
// Records are append-only; Reason is required for reject verdicts.
type FeedbackRecord struct {
	ID         int64
	ScoutID    string
	DraftRef   string
	Verdict    Verdict
	Reason     string
	RecordedAt time.Time
}
