package challenge

import (
	"context"
	"io"
	"net/http"

	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
)

// SubmissionDetails lists the member's submissions to a challenge.
func (c *Client) SubmissionDetails(ctx context.Context, challengeID, memberID, token string) ([]SubmissionRecord, error) {
	u := expand(c.endpoints.MemberSubmissionsURL, map[string]string{
		"challengeId": challengeID,
		"memberId":    memberID,
	})
	var records []SubmissionRecord
	if err := c.getJSON(ctx, u, token, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SubmissionArtifacts lists the artifact ids attached to a submission.
func (c *Client) SubmissionArtifacts(ctx context.Context, submissionID, token string) ([]string, error) {
	u := expand(c.endpoints.SubmissionArtifactsURL, map[string]string{"submissionId": submissionID})
	var body struct {
		Artifacts []string `json:"artifacts"`
	}
	if err := c.getJSON(ctx, u, token, &body); err != nil {
		return nil, err
	}
	return body.Artifacts, nil
}

// Reviews joins each of the member's submissions with its first review and
// its artifacts. An unreviewed submission has a nil score.
func (c *Client) Reviews(ctx context.Context, challengeID, memberID, token string) ([]Review, error) {
	records, err := c.SubmissionDetails(ctx, challengeID, memberID, token)
	if err != nil {
		return nil, err
	}
	reviews := make([]Review, 0, len(records))
	for _, rec := range records {
		artifacts, err := c.SubmissionArtifacts(ctx, string(rec.ID), token)
		if err != nil {
			return nil, err
		}
		r := Review{ID: rec.ID, Artifacts: artifacts, Created: rec.Created}
		if len(rec.Reviews) > 0 {
			r.Score = rec.Reviews[0].Score
			r.Created = rec.Reviews[0].Created
		}
		reviews = append(reviews, r)
	}
	return reviews, nil
}

// DownloadArtifact streams an artifact of a submission into w and returns
// the number of bytes written. Downloads are not retried: w may already hold
// part of the content.
func (c *Client) DownloadArtifact(ctx context.Context, submissionID, artifactID, token string, w io.Writer) (int64, error) {
	u := expand(c.endpoints.ArtifactDownloadURL, map[string]string{
		"submissionId": submissionID,
		"artifactId":   artifactID,
	})
	req, err := c.newRequest(ctx, http.MethodGet, u, token, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "*/*")
	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, errors.NetworkError("artifact download interrupted").
			WithCause(err).
			WithContext("url", u).
			Build()
	}
	return n, nil
}
