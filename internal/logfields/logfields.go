package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyAttemptID   = "attempt_id"
	KeyChallengeID = "challenge_id"
	KeySubmission  = "submission_id"
	KeyArtifact    = "artifact_id"
	KeyHandle      = "handle"
	KeyStage       = "stage"
	KeyDurationMS  = "duration_ms"
	KeyPath        = "path"
	KeyFile        = "file"
	KeyFiles       = "files"
	KeyBytes       = "bytes"
	KeyDigest      = "digest"
	KeyPattern     = "pattern"
	KeyName        = "name"
	KeyURL         = "url"
	KeyMethod      = "method"
	KeyStatus      = "status"
	KeyAttempt     = "attempt"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func AttemptID(id string) slog.Attr     { return slog.String(KeyAttemptID, id) }
func ChallengeID(id string) slog.Attr   { return slog.String(KeyChallengeID, id) }
func SubmissionID(id string) slog.Attr  { return slog.String(KeySubmission, id) }
func ArtifactID(id string) slog.Attr    { return slog.String(KeyArtifact, id) }
func Handle(h string) slog.Attr         { return slog.String(KeyHandle, h) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func File(f string) slog.Attr           { return slog.String(KeyFile, f) }
func Files(n int) slog.Attr             { return slog.Int(KeyFiles, n) }
func Bytes(n int64) slog.Attr           { return slog.Int64(KeyBytes, n) }
func Digest(d string) slog.Attr         { return slog.String(KeyDigest, d) }
func Pattern(p string) slog.Attr        { return slog.String(KeyPattern, p) }
func Name(n string) slog.Attr           { return slog.String(KeyName, n) }
func URL(u string) slog.Attr            { return slog.String(KeyURL, u) }
func Method(m string) slog.Attr         { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr         { return slog.Int(KeyStatus, code) }
func Attempt(n int) slog.Attr           { return slog.Int(KeyAttempt, n) }
func Duration(d time.Duration) slog.Attr { return DurationMS(float64(d.Microseconds()) / 1000) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
