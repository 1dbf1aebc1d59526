package challenge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
)

// ActiveChallenges lists the challenges currently open on the platform.
func (c *Client) ActiveChallenges(ctx context.Context, token string) ([]Summary, error) {
	var env envelope[[]Summary]
	if err := c.getJSON(ctx, c.endpoints.ActiveChallengesURL, token, &env); err != nil {
		return nil, err
	}
	return env.Result.Content, nil
}

// ChallengeDetails fetches the current record of one challenge. It is never
// cached: eligibility decisions depend on live registrant and phase state.
func (c *Client) ChallengeDetails(ctx context.Context, id, token string) (*Details, error) {
	u := expand(c.endpoints.ChallengeDetailsURL, map[string]string{"challengeId": id})
	var env envelope[*Details]
	if err := c.getJSON(ctx, u, token, &env); err != nil {
		return nil, err
	}
	if env.Result.Content == nil {
		return nil, errors.NewError(errors.CategoryNotFound, "challenge API returned no challenge").
			WithContext("challenge_id", id).
			Build()
	}
	d := env.Result.Content
	if d.ChallengeID == "" {
		d.ChallengeID = ID(id)
	}
	return d, nil
}

// Register signs the caller up for a challenge. The platform reports
// refusals (already registered, phase closed, terms missing) in the response
// envelope; those come back as an error carrying the server's message.
func (c *Client) Register(ctx context.Context, id, token string) (*Registration, error) {
	u := expand(c.endpoints.RegistrationURL, map[string]string{"challengeId": id})
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	req, err := c.newRequest(ctx, http.MethodPost, u, token, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NetworkError("registration request failed").
			WithCause(err).
			WithContext("url", u).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, statusError(req, resp)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	reg := &Registration{Status: resp.StatusCode}
	var env envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err == nil && env.Result.Status != 0 {
		reg.Status = env.Result.Status
		reg.Message = contentMessage(env.Result.Content)
	}
	if reg.Status != http.StatusOK {
		msg := reg.Message
		if msg == "" {
			msg = "registration failed"
		}
		return reg, errors.APIError(msg).
			WithContext("challenge_id", id).
			WithContext("code", reg.Status).
			Build()
	}
	return reg, nil
}

// contentMessage extracts a human-readable message from an envelope's
// content, which is a bare string or an object with a message field.
func contentMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Message)
	}
	return ""
}

// MemberChallenges lists the challenges the member with handle takes part in.
func (c *Client) MemberChallenges(ctx context.Context, handle, token string) ([]MemberChallenge, error) {
	u := expand(c.endpoints.MemberChallengesURL, map[string]string{"memberId": handle})
	var env envelope[[]MemberChallenge]
	if err := c.getJSON(ctx, u, token, &env); err != nil {
		return nil, err
	}
	return env.Result.Content, nil
}

// ActiveSubmissions lists the member's challenges that hold a submission
// awaiting review.
func (c *Client) ActiveSubmissions(ctx context.Context, handle, token string) ([]ActiveSubmission, error) {
	challenges, err := c.MemberChallenges(ctx, handle, token)
	if err != nil {
		return nil, err
	}
	var out []ActiveSubmission
	for _, ch := range challenges {
		if ch.UserDetails.HasUserSubmittedForReview {
			out = append(out, ActiveSubmission{ID: ch.ID, Name: ch.Name})
		}
	}
	return out, nil
}
