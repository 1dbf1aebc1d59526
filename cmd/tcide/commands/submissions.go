package commands

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
	"git.home.luguber.info/inful/tcide/internal/render"
)

// SubmissionsCmd implements the 'submissions' command.
type SubmissionsCmd struct{}

func (SubmissionsCmd) Run(g *Global, root *CLI) error {
	client, token, id, err := root.session(g.Ctx)
	if err != nil {
		return err
	}
	subs, err := client.ActiveSubmissions(g.Ctx, id.Handle, token)
	if err != nil {
		return err
	}
	return render.ActiveSubmissions(g.Out, subs)
}

// ReviewsCmd implements the 'reviews' command.
type ReviewsCmd struct {
	ID string `arg:"" name:"challenge-id" help:"Challenge ID"`
}

func (r *ReviewsCmd) Run(g *Global, root *CLI) error {
	client, token, id, err := root.session(g.Ctx)
	if err != nil {
		return err
	}
	reviews, err := client.Reviews(g.Ctx, r.ID, id.UserID, token)
	if err != nil {
		return err
	}
	return render.Reviews(g.Out, reviews)
}

// DownloadCmd implements the 'download' command.
type DownloadCmd struct {
	SubmissionID string `arg:"" name:"submission-id" help:"Submission ID"`
	ArtifactID   string `arg:"" name:"artifact-id" help:"Artifact ID"`
	Output       string `short:"o" help:"Destination file (default <artifact-id>.zip)" type:"path"`
}

func (d *DownloadCmd) Run(g *Global, root *CLI) error {
	client, token, _, err := root.session(g.Ctx)
	if err != nil {
		return err
	}
	dest := d.Output
	if dest == "" {
		dest = d.ArtifactID + ".zip"
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) // #nosec G304 -- user-selected destination
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create download file").
			WithContext("path", dest).
			Build()
	}
	n, err := client.DownloadArtifact(g.Ctx, d.SubmissionID, d.ArtifactID, token, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errors.WrapError(cerr, errors.CategoryFileSystem, "failed to write download file").Build()
	}
	if err != nil {
		_ = os.Remove(dest)
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Downloaded %d bytes to %s\n", n, dest)
	return nil
}
