package starterpack

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
	"git.home.luguber.info/inful/tcide/internal/logfields"
	"git.home.luguber.info/inful/tcide/internal/metrics"
	"git.home.luguber.info/inful/tcide/internal/workspace"
)

// ErrFileExists is returned when a starter file would overwrite a workspace
// file. Nothing is copied in that case.
var ErrFileExists = errors.FileSystemError("starter pack file already exists in workspace").
	UserAction().
	Build()

// Cloner copies starter repositories into workspaces.
type Cloner struct {
	depth    int
	auth     transport.AuthMethod
	recorder metrics.Recorder
}

// ClonerOption configures a Cloner.
type ClonerOption func(*Cloner)

// WithDepth sets the clone depth; 0 fetches full history.
func WithDepth(depth int) ClonerOption {
	return func(c *Cloner) { c.depth = depth }
}

// WithToken authenticates HTTPS clones with a personal access token.
func WithToken(token string) ClonerOption {
	return func(c *Cloner) {
		if token != "" {
			c.auth = &http.BasicAuth{Username: "token", Password: token}
		}
	}
}

// WithRecorder records clone durations.
func WithRecorder(r metrics.Recorder) ClonerOption {
	return func(c *Cloner) {
		if r != nil {
			c.recorder = r
		}
	}
}

// NewCloner returns a shallow cloner.
func NewCloner(opts ...ClonerOption) *Cloner {
	c := &Cloner{depth: 1, recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clone fetches repo and moves its files into dest without its git
// metadata. It returns the number of files added.
func (c *Cloner) Clone(ctx context.Context, dest string, repo Repo) (int, error) {
	start := time.Now()
	n, err := c.clone(ctx, dest, repo)
	c.recorder.ObserveCloneDuration(repo.URL, time.Since(start), err == nil)
	return n, err
}

func (c *Cloner) clone(ctx context.Context, dest string, repo Repo) (int, error) {
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return 0, errors.WrapError(err, errors.CategoryFileSystem, "failed to create workspace directory").
			WithContext("path", dest).
			Build()
	}

	// Scratch lives inside dest so the final moves are renames on one filesystem.
	scratch := workspace.NewScratch(dest, ".tcide-starter")
	if err := scratch.Create(); err != nil {
		return 0, err
	}
	defer func() {
		if err := scratch.Cleanup(); err != nil {
			slog.Warn("Failed to remove starter pack scratch directory", logfields.Path(scratch.Path()), logfields.Error(err))
		}
	}()

	opts := &git.CloneOptions{URL: repo.URL, Depth: c.depth, Auth: c.auth}
	if repo.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(repo.Branch)
		opts.SingleBranch = true
	}
	slog.Debug("Cloning starter pack", logfields.URL(repo.URL), logfields.Name(repo.Title), logfields.Path(dest))
	if _, err := git.PlainCloneContext(ctx, scratch.Path(), false, opts); err != nil {
		return 0, errors.WrapError(err, errors.CategoryGit, "failed to clone starter pack").
			WithContext("url", repo.URL).
			Build()
	}
	if err := os.RemoveAll(filepath.Join(scratch.Path(), ".git")); err != nil {
		return 0, errors.WrapError(err, errors.CategoryFileSystem, "failed to remove starter pack git metadata").Build()
	}

	files, err := collect(scratch.Path(), dest)
	if err != nil {
		return 0, err
	}
	for _, rel := range files {
		target := filepath.Join(dest, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return 0, errors.WrapError(err, errors.CategoryFileSystem, "failed to create starter pack directory").
				WithContext("path", filepath.Dir(target)).
				Build()
		}
		if err := os.Rename(filepath.Join(scratch.Path(), rel), target); err != nil {
			return 0, errors.WrapError(err, errors.CategoryFileSystem, "failed to move starter pack file").
				WithContext("path", target).
				Build()
		}
	}
	slog.Info("Starter pack added", logfields.Name(repo.Title), logfields.Files(len(files)), logfields.Path(dest))
	return len(files), nil
}

// collect lists the files under src relative to it and fails if any of them,
// or a directory on the way to them, collides with a file in dest.
func collect(src, dest string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil || rel == "." {
			return err
		}

		existing, statErr := os.Lstat(filepath.Join(dest, rel))
		switch {
		case statErr != nil:
		case d.IsDir() && existing.IsDir():
		default:
			return ErrFileExists.WithContext("path", filepath.ToSlash(rel))
		}
		if !d.IsDir() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		if _, ok := errors.AsClassified(err); ok {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read starter pack").Build()
	}
	return files, nil
}
