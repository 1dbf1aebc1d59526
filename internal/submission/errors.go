package submission

import (
	"git.home.luguber.info/inful/tcide/internal/eligibility"
	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
	"git.home.luguber.info/inful/tcide/internal/workspace"
)

// Errors returned by Run. Each carries one user-facing message; the cause
// is kept for logs and is reachable with errors.Unwrap.
var (
	ErrNoWorkspace        = errors.ValidationError("no workspace to submit").Build()
	ErrMissingMarker      = workspace.ErrMarkerMissing
	ErrMalformedMarker    = workspace.ErrMarkerMalformed
	ErrMissingChallengeID = workspace.ErrChallengeIDMissing

	// ErrChallengeFetchFailed covers both an unreachable platform and an
	// unknown challenge; the cause tells them apart.
	ErrChallengeFetchFailed = errors.NewError(errors.CategoryChallenge, "challenge not found or could not be loaded").Build()

	ErrNotRegistered         = eligibility.ErrNotRegistered
	ErrSubmissionPhaseClosed = eligibility.ErrSubmissionPhaseClosed

	ErrFilesystem             = errors.FileSystemError("workspace could not be read").Build()
	ErrArchive                = errors.ArchiveError("submission archive could not be built").Build()
	ErrSubmissionUploadFailed = errors.NewError(errors.CategorySubmission, "submission upload failed").Build()
	ErrInProgress             = workspace.ErrSubmissionInProgress
	ErrCanceled               = errors.NewError(errors.CategorySubmission, "submission canceled").Build()
)
