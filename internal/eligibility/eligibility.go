// Package eligibility decides whether a member may submit to a challenge.
package eligibility

import (
	"git.home.luguber.info/inful/tcide/internal/challenge"
	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
)

var (
	// ErrNotRegistered is returned when the member is not a registrant.
	ErrNotRegistered = errors.EligibilityError("you are not registered for this challenge").Build()
	// ErrSubmissionPhaseClosed is returned when no submission phase is open.
	ErrSubmissionPhaseClosed = errors.EligibilityError("the submission phase of this challenge is not open").Build()
)

// Validate checks registration first and the submission phase second, and
// reports the first failing check.
func Validate(details *challenge.Details, handle string) error {
	if details == nil || !details.HasRegistrant(handle) {
		return ErrNotRegistered.WithContext("handle", handle)
	}
	if !details.SubmissionOpen() {
		return ErrSubmissionPhaseClosed.WithContext("challenge_id", details.ChallengeID.String())
	}
	return nil
}

// CanRegister reports whether registering is still possible for handle:
// not yet a registrant, and the challenge is in its registration or
// submission phase.
func CanRegister(details *challenge.Details, handle string) bool {
	if details == nil || details.HasRegistrant(handle) {
		return false
	}
	return InApplyPhase(details)
}

// InApplyPhase reports whether the challenge currently accepts new
// participants.
func InApplyPhase(details *challenge.Details) bool {
	switch details.CurrentPhaseName {
	case challenge.PhaseRegistration, challenge.PhaseSubmission:
		return true
	default:
		return false
	}
}
