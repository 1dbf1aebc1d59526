package history

import (
	"encoding/json"
	"time"
)

// Attempt statuses derived from an attempt's events.
const (
	StatusRunning  = "running"
	StatusUploaded = "uploaded"
	StatusFailed   = "failed"
)

// AttemptSummary is the read model of one submission attempt.
type AttemptSummary struct {
	AttemptID    string
	ChallengeID  string
	Workspace    string
	Status       string
	StartedAt    time.Time
	FinishedAt   time.Time
	Files        int
	Bytes        int64
	Digest       string
	SubmissionID string
	FailedStage  string
	Error        string
}

// Summarize folds events, given in insertion order, into one summary per
// attempt, newest attempt first. Payloads that do not decode are skipped.
func Summarize(events []Event) []AttemptSummary {
	byID := make(map[string]*AttemptSummary)
	var order []string

	for _, e := range events {
		s, ok := byID[e.AttemptID]
		if !ok {
			s = &AttemptSummary{AttemptID: e.AttemptID, Status: StatusRunning, StartedAt: e.Timestamp}
			byID[e.AttemptID] = s
			order = append(order, e.AttemptID)
		}

		switch e.Type {
		case TypeAttemptStarted:
			var p AttemptStarted
			if json.Unmarshal(e.Payload, &p) == nil {
				s.ChallengeID = p.ChallengeID
				s.Workspace = p.Workspace
			}
		case TypeArchiveBuilt:
			var p ArchiveBuilt
			if json.Unmarshal(e.Payload, &p) == nil {
				s.Files, s.Bytes, s.Digest = p.Files, p.Bytes, p.Digest
			}
		case TypeSubmissionUploaded:
			var p SubmissionUploaded
			if json.Unmarshal(e.Payload, &p) == nil {
				s.SubmissionID = p.SubmissionID
				s.Status = StatusUploaded
				s.FinishedAt = e.Timestamp
			}
		case TypeStageFailed:
			var p StageFailed
			if json.Unmarshal(e.Payload, &p) == nil {
				s.FailedStage = p.Stage
				s.Error = p.Message
				s.Status = StatusFailed
				s.FinishedAt = e.Timestamp
			}
		}
	}

	out := make([]AttemptSummary, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		out = append(out, *byID[order[i]])
	}
	return out
}
