package challenge

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
)

// Upload is the payload of a submission upload.
type Upload struct {
	Name        string    // file name reported to the platform
	Data        io.Reader // archive content, streamed
	ChallengeID string
	MemberID    string
	Type        string // defaults to SubmissionType
}

// CreateSubmission uploads a solution archive. The multipart body is
// produced while it is sent, so the archive is never held in memory. Uploads
// are not retried.
func (c *Client) CreateSubmission(ctx context.Context, up Upload, token string) (*Submission, error) {
	if up.Data == nil || up.ChallengeID == "" || up.MemberID == "" {
		return nil, errors.ValidationError("submission upload needs data, a challenge id and a member id").Build()
	}
	if up.Type == "" {
		up.Type = SubmissionType
	}
	if up.Name == "" {
		up.Name = "submission.zip"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = pw.CloseWithError(writeForm(mw, up))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoints.SubmissionUploadURL, token, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		<-done
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	// Unblock the writer if the request ended before the body was consumed.
	_ = pr.CloseWithError(io.ErrClosedPipe)
	<-done
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var sub Submission
	if err := decode(resp, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func writeForm(mw *multipart.Writer, up Upload) error {
	part, err := mw.CreateFormFile("submission", filepath.Base(up.Name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, up.Data); err != nil {
		return err
	}
	for _, field := range [][2]string{
		{"type", up.Type},
		{"challengeId", up.ChallengeID},
		{"memberId", up.MemberID},
	} {
		if err := mw.WriteField(field[0], field[1]); err != nil {
			return err
		}
	}
	return mw.Close()
}
