package history

// AttemptStarted is recorded once the marker names a challenge.
type AttemptStarted struct {
	ChallengeID string `json:"challenge_id"`
	Workspace   string `json:"workspace"`
	Handle      string `json:"handle"`
}

// StageFailed is recorded when an attempt stops at a stage.
type StageFailed struct {
	Stage    string `json:"stage"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// ArchiveBuilt is recorded after the artifact is finalized.
type ArchiveBuilt struct {
	Files  int    `json:"files"`
	Bytes  int64  `json:"bytes"`
	Digest string `json:"digest"`
}

// SubmissionUploaded is recorded when the platform accepted the upload.
type SubmissionUploaded struct {
	SubmissionID string `json:"submission_id"`
	ChallengeID  string `json:"challenge_id"`
	DurationMS   int64  `json:"duration_ms"`
}
