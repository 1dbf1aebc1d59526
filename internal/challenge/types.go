package challenge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ID is a platform identifier. The API returns ids both as JSON strings and
// as JSON numbers; either decodes to the same textual form.
type ID string

// UnmarshalJSON accepts a string, a number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*id = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid id %s: %w", data, err)
		}
		*id = ID(n.String())
	}
	return nil
}

func (id ID) String() string { return string(id) }

// Phase is one entry of a challenge's phase list.
type Phase struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// Phase names and statuses the client acts on.
const (
	PhaseSubmission   = "Submission"
	PhaseRegistration = "Registration"
	StatusOpen        = "Open"
)

// Registrant is a member registered for a challenge.
type Registrant struct {
	Handle           string `json:"handle"`
	RegistrationDate string `json:"registrationDate,omitempty"`
}

// Details is the full record of one challenge.
type Details struct {
	ChallengeID               ID           `json:"challengeId"`
	Title                     string       `json:"challengeTitle"`
	Type                      string       `json:"challengeType,omitempty"`
	Registrants               []Registrant `json:"registrants"`
	Phases                    []Phase      `json:"phases"`
	Prizes                    []float64    `json:"prizes"`
	Technologies              []string     `json:"technologies"`
	CurrentPhaseName          string       `json:"currentPhaseName"`
	CurrentStatus             string       `json:"currentStatus"`
	NumberOfRegistrants       int          `json:"numberOfRegistrants"`
	NumberOfSubmissions       int          `json:"numberOfSubmissions"`
	Introduction              string       `json:"introduction"`
	DetailedRequirements      string       `json:"detailedRequirements"`
	FinalSubmissionGuidelines string       `json:"finalSubmissionGuidelines"`
}

// HasRegistrant reports whether handle is registered. Handles compare exactly.
func (d *Details) HasRegistrant(handle string) bool {
	for _, r := range d.Registrants {
		if r.Handle == handle {
			return true
		}
	}
	return false
}

// SubmissionOpen reports whether the submission phase is open.
func (d *Details) SubmissionOpen() bool {
	for _, p := range d.Phases {
		if p.Type == PhaseSubmission && p.Status == StatusOpen {
			return true
		}
	}
	return false
}

// Specification returns the requirements text, falling back to the
// introduction when no detailed requirements are published.
func (d *Details) Specification() string {
	if strings.TrimSpace(d.DetailedRequirements) != "" {
		return d.DetailedRequirements
	}
	return d.Introduction
}

// CurrentPhase is an entry of a challenge listing's current phases.
type CurrentPhase struct {
	Type   string `json:"phaseType"`
	Status string `json:"phaseStatus"`
}

// Summary is a challenge as it appears in the active challenge listing.
type Summary struct {
	ID            ID             `json:"id"`
	Name          string         `json:"name"`
	SubTrack      string         `json:"subTrack"`
	Registrants   int            `json:"numRegistrants"`
	Prizes        []float64      `json:"prizes"`
	CurrentPhases []CurrentPhase `json:"currentPhases"`
}

// OpenPhases returns the types of the currently open phases.
func (s Summary) OpenPhases() []string {
	var out []string
	for _, p := range s.CurrentPhases {
		if p.Status == StatusOpen {
			out = append(out, p.Type)
		}
	}
	return out
}

// UserDetails is the caller-specific part of a member challenge record.
type UserDetails struct {
	HasUserSubmittedForReview bool     `json:"hasUserSubmittedForReview"`
	Roles                     []string `json:"roles,omitempty"`
}

// MemberChallenge is a challenge the member takes part in.
type MemberChallenge struct {
	ID          ID          `json:"id"`
	Name        string      `json:"name"`
	Track       string      `json:"track,omitempty"`
	Status      string      `json:"status,omitempty"`
	UserDetails UserDetails `json:"userDetails"`
}

// ActiveSubmission names a challenge the member has submitted to.
type ActiveSubmission struct {
	ID   ID
	Name string
}

// ReviewRecord is one review of a submission.
type ReviewRecord struct {
	ID      ID        `json:"id"`
	Score   *float64  `json:"score"`
	Created time.Time `json:"created"`
}

// SubmissionRecord is a stored submission with its reviews.
type SubmissionRecord struct {
	ID          ID             `json:"id"`
	ChallengeID ID             `json:"challengeId"`
	MemberID    ID             `json:"memberId"`
	Type        string         `json:"type"`
	URL         string         `json:"url"`
	Created     time.Time      `json:"created"`
	Reviews     []ReviewRecord `json:"review"`
}

// Review joins a submission's first review with its downloadable artifacts.
// Score is nil while the submission is unreviewed.
type Review struct {
	ID        ID
	Score     *float64
	Created   time.Time
	Artifacts []string
}

// Registration is the outcome of a registration request.
type Registration struct {
	Status  int
	Message string
}

// Submission is the record created by an upload.
type Submission struct {
	ID          ID        `json:"id"`
	Type        string    `json:"type"`
	URL         string    `json:"url"`
	MemberID    ID        `json:"memberId"`
	ChallengeID ID        `json:"challengeId"`
	Created     time.Time `json:"created"`
	CreatedBy   string    `json:"createdBy"`
}

// SubmissionType is the upload type of a contest solution.
const SubmissionType = "contest_submission"

// envelope is the v4 response wrapper: {"result":{"status":N,"content":X}}.
type envelope[T any] struct {
	Result struct {
		Status  int `json:"status"`
		Content T   `json:"content"`
	} `json:"result"`
}
