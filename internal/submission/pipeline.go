// Package submission packages a workspace and uploads it as a challenge
// submission.
//
// A run walks a fixed sequence of stages and stops at the first failure:
//
//	read_marker -> validate_marker -> lock_workspace -> fetch_details ->
//	check_eligibility -> build_ignore_rules -> walk -> archive -> upload -> cleanup
//
// Stages up to walk honor context cancellation. From archive on the run is
// detached from the caller's context and always completes, and the temporary
// archive is removed exactly once on every path.
package submission

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/tcide/internal/archive"
	"git.home.luguber.info/inful/tcide/internal/auth"
	"git.home.luguber.info/inful/tcide/internal/challenge"
	"git.home.luguber.info/inful/tcide/internal/eligibility"
	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
	"git.home.luguber.info/inful/tcide/internal/history"
	"git.home.luguber.info/inful/tcide/internal/ignore"
	"git.home.luguber.info/inful/tcide/internal/logfields"
	"git.home.luguber.info/inful/tcide/internal/metrics"
	"git.home.luguber.info/inful/tcide/internal/workspace"
)

// Stage names one step of a run.
type Stage string

const (
	StageReadMarker       Stage = "read_marker"
	StageValidateMarker   Stage = "validate_marker"
	StageLockWorkspace    Stage = "lock_workspace"
	StageFetchDetails     Stage = "fetch_details"
	StageCheckEligibility Stage = "check_eligibility"
	StageBuildIgnoreRules Stage = "build_ignore_rules"
	StageWalk             Stage = "walk"
	StageArchive          Stage = "archive"
	StageUpload           Stage = "upload"
	StageCleanup          Stage = "cleanup"
)

// API is the part of the challenge platform a run talks to.
type API interface {
	ChallengeDetails(ctx context.Context, id, token string) (*challenge.Details, error)
	CreateSubmission(ctx context.Context, up challenge.Upload, token string) (*challenge.Submission, error)
}

// EventSink receives attempt events; history.Store satisfies it.
type EventSink interface {
	Append(ctx context.Context, attemptID, eventType string, payload []byte, metadata map[string]string) error
}

// Request identifies what to submit and as whom.
type Request struct {
	Workspace string
	Token     string
	// Identity is decoded from Token when left empty.
	Identity auth.Identity
}

// Pipeline runs submissions. It holds no per-attempt state and is safe for
// concurrent use; attempts on the same workspace are serialized.
type Pipeline struct {
	api         API
	recorder    metrics.Recorder
	sink        EventSink
	observer    func(Stage)
	archiveOpts []archive.Option
	locks       *keyedLock
	newID       func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithHistory records attempt events in sink.
func WithHistory(sink EventSink) Option {
	return func(p *Pipeline) { p.sink = sink }
}

// WithStageObserver calls fn as each stage begins.
func WithStageObserver(fn func(Stage)) Option {
	return func(p *Pipeline) { p.observer = fn }
}

// WithArchiveOptions passes options to the archive builder.
func WithArchiveOptions(opts ...archive.Option) Option {
	return func(p *Pipeline) { p.archiveOpts = append(p.archiveOpts, opts...) }
}

// New returns a pipeline uploading through api.
func New(api API, opts ...Option) *Pipeline {
	p := &Pipeline{
		api:      api,
		recorder: metrics.NoopRecorder{},
		locks:    workspaceLocks,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// attempt is the state of one run.
type attempt struct {
	p           *Pipeline
	id          string
	root        string
	token       string
	identity    auth.Identity
	challengeID string
	log         *slog.Logger
}

// Run submits the workspace in req and returns the platform's submission
// record. It never retries.
func (p *Pipeline) Run(ctx context.Context, req Request) (*challenge.Submission, error) {
	if strings.TrimSpace(req.Workspace) == "" {
		return nil, ErrNoWorkspace
	}
	root, err := filepath.Abs(req.Workspace)
	if err != nil {
		return nil, ErrFilesystem.Wrap(err)
	}

	release, err := p.locks.acquire(ctx, root)
	if err != nil {
		return nil, ErrCanceled.Wrap(err)
	}
	defer release()

	a := &attempt{
		p:        p,
		id:       p.newID(),
		root:     root,
		token:    req.Token,
		identity: req.Identity,
	}
	a.log = slog.With(logfields.AttemptID(a.id), logfields.Path(root))

	start := time.Now()
	sub, err := a.run(ctx)
	a.finish(sub, err, time.Since(start))
	return sub, err
}

func (a *attempt) run(ctx context.Context) (*challenge.Submission, error) {
	var markerData []byte
	if err := a.step(ctx, StageReadMarker, func() error {
		data, _, err := workspace.ReadMarkerFile(a.root)
		if err != nil {
			if stderrors.Is(err, ErrMissingMarker) {
				return err
			}
			return ErrFilesystem.Wrap(err)
		}
		markerData = data
		return nil
	}); err != nil {
		return nil, err
	}

	if err := a.step(ctx, StageValidateMarker, func() error {
		id, err := workspace.ParseMarker(markerData)
		if err != nil {
			return err
		}
		a.challengeID = id
		a.log = a.log.With(logfields.ChallengeID(id))
		return nil
	}); err != nil {
		return nil, err
	}

	if a.identity.Handle == "" || a.identity.UserID == "" {
		id, err := auth.Decode(a.token)
		if err != nil {
			return nil, err
		}
		a.identity = id
	}

	a.record(ctx, history.TypeAttemptStarted, history.AttemptStarted{
		ChallengeID: a.challengeID,
		Workspace:   a.root,
		Handle:      a.identity.Handle,
	})

	var fileLock *workspace.FileLock
	if err := a.step(ctx, StageLockWorkspace, func() error {
		l, err := workspace.AcquireFileLock(a.root)
		fileLock = l
		return err
	}); err != nil {
		return nil, err
	}
	defer func() {
		if err := fileLock.Release(); err != nil {
			a.log.Warn("Failed to release workspace lock", logfields.Error(err))
		}
	}()

	var details *challenge.Details
	if err := a.step(ctx, StageFetchDetails, func() error {
		d, err := a.p.api.ChallengeDetails(ctx, a.challengeID, a.token)
		if err != nil {
			return ErrChallengeFetchFailed.Wrap(err).WithContext("challenge_id", a.challengeID)
		}
		details = d
		return nil
	}); err != nil {
		return nil, err
	}

	if err := a.step(ctx, StageCheckEligibility, func() error {
		return eligibility.Validate(details, a.identity.Handle)
	}); err != nil {
		return nil, err
	}

	var matcher *ignore.Matcher
	if err := a.step(ctx, StageBuildIgnoreRules, func() error {
		m, err := ignore.Load(a.root, workspace.ArtifactIgnoreRule, workspace.LockIgnoreRule)
		if err != nil {
			return ErrFilesystem.Wrap(err)
		}
		matcher = m
		return nil
	}); err != nil {
		return nil, err
	}

	var manifest workspace.Manifest
	if err := a.step(ctx, StageWalk, func() error {
		m, err := workspace.Walk(a.root, matcher)
		if err != nil {
			return ErrFilesystem.Wrap(err)
		}
		manifest = m
		a.log.Debug("Selected files for submission", logfields.Files(m.Len()))
		return nil
	}); err != nil {
		return nil, err
	}

	// Past this point the run finishes regardless of the caller.
	dctx := context.WithoutCancel(ctx)
	artifact := workspace.NewArtifactManager(a.root)
	defer a.cleanup(dctx, artifact)

	var built archive.Result
	if err := a.step(dctx, StageArchive, func() error {
		if err := artifact.Create(); err != nil {
			return ErrArchive.Wrap(err)
		}
		res, err := archive.Build(dctx, a.root, manifest.Files, artifact.Path(), a.p.archiveOpts...)
		if err != nil {
			return ErrArchive.Wrap(err)
		}
		built = res
		return nil
	}); err != nil {
		return nil, err
	}
	a.p.recorder.ObserveArchiveBytes(built.Bytes)
	a.record(dctx, history.TypeArchiveBuilt, history.ArchiveBuilt{Files: built.Files, Bytes: built.Bytes, Digest: built.Digest})
	a.log.Info("Built submission archive",
		logfields.Files(built.Files), logfields.Bytes(built.Bytes), logfields.Digest(built.Digest))

	var sub *challenge.Submission
	uploadStart := time.Now()
	if err := a.step(dctx, StageUpload, func() error {
		f, err := os.Open(built.Path)
		if err != nil {
			return ErrSubmissionUploadFailed.Wrap(err)
		}
		defer func() { _ = f.Close() }()

		s, err := a.p.api.CreateSubmission(dctx, challenge.Upload{
			Name:        filepath.Base(built.Path),
			Data:        f,
			ChallengeID: a.challengeID,
			MemberID:    a.identity.UserID,
			Type:        challenge.SubmissionType,
		}, a.token)
		if err != nil {
			return ErrSubmissionUploadFailed.Wrap(err)
		}
		if s == nil {
			return ErrSubmissionUploadFailed.WithContext("reason", "no submission record returned")
		}
		sub = s
		return nil
	}); err != nil {
		return nil, err
	}
	a.record(dctx, history.TypeSubmissionUploaded, history.SubmissionUploaded{
		SubmissionID: sub.ID.String(),
		ChallengeID:  a.challengeID,
		DurationMS:   time.Since(uploadStart).Milliseconds(),
	})
	return sub, nil
}

// step runs one stage. Stages run under a live ctx are skipped once it is
// done.
func (a *attempt) step(ctx context.Context, stage Stage, fn func() error) error {
	if a.p.observer != nil {
		a.p.observer(stage)
	}
	if err := ctx.Err(); err != nil {
		err = ErrCanceled.Wrap(err).WithContext("stage", string(stage))
		a.p.recorder.IncStageResult(string(stage), metrics.ResultCanceled)
		a.stageFailed(stage, err)
		return err
	}

	start := time.Now()
	err := fn()
	d := time.Since(start)
	a.p.recorder.ObserveStageDuration(string(stage), d)

	if err != nil {
		result := metrics.ResultFailed
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			result = metrics.ResultCanceled
		}
		a.p.recorder.IncStageResult(string(stage), result)
		a.stageFailed(stage, err)
		return err
	}
	a.p.recorder.IncStageResult(string(stage), metrics.ResultSuccess)
	a.log.Debug("Stage complete", logfields.Stage(string(stage)), logfields.DurationMS(float64(d.Milliseconds())))
	return nil
}

func (a *attempt) stageFailed(stage Stage, err error) {
	category := string(errors.GetCategory(err))
	message := err.Error()
	if ce, ok := errors.AsClassified(err); ok {
		message = ce.Message()
	}
	a.log.Debug("Stage failed", logfields.Stage(string(stage)), logfields.Error(err))
	a.record(context.Background(), history.TypeStageFailed, history.StageFailed{
		Stage:    string(stage),
		Category: category,
		Message:  message,
	})
}

// cleanup removes the archive. A failure is logged and never replaces the
// run's own result.
func (a *attempt) cleanup(ctx context.Context, artifact *workspace.ArtifactManager) {
	_ = a.step(ctx, StageCleanup, func() error {
		if err := artifact.Cleanup(); err != nil {
			a.log.Warn("Failed to remove submission archive", logfields.Path(artifact.Path()), logfields.Error(err))
			return err
		}
		return nil
	})
}

func (a *attempt) record(ctx context.Context, eventType string, payload any) {
	if a.p.sink == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		a.log.Warn("Failed to encode history event", logfields.Name(eventType), logfields.Error(err))
		return
	}
	meta := map[string]string{"workspace": a.root}
	if a.challengeID != "" {
		meta["challenge_id"] = a.challengeID
	}
	if err := a.p.sink.Append(context.WithoutCancel(ctx), a.id, eventType, data, meta); err != nil {
		a.log.Warn("Failed to record history event", logfields.Name(eventType), logfields.Error(err))
	}
}

func (a *attempt) finish(sub *challenge.Submission, err error, d time.Duration) {
	a.p.recorder.ObserveSubmissionDuration(d)
	switch {
	case err == nil:
		a.p.recorder.IncSubmissionOutcome(metrics.OutcomeUploaded)
		a.log.Info("Submission uploaded", logfields.SubmissionID(sub.ID.String()), logfields.Duration(d))
	case stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded):
		a.p.recorder.IncSubmissionOutcome(metrics.OutcomeCanceled)
		a.log.Info("Submission canceled", logfields.Duration(d))
	case errors.HasCategory(err, errors.CategoryMarker) || errors.HasCategory(err, errors.CategoryEligibility) ||
		errors.HasCategory(err, errors.CategoryAuth) || stderrors.Is(err, ErrInProgress):
		a.p.recorder.IncSubmissionOutcome(metrics.OutcomeRejected)
		a.log.Info("Submission rejected", logfields.Error(err))
	default:
		a.p.recorder.IncSubmissionOutcome(metrics.OutcomeFailed)
		a.log.Warn("Submission failed", logfields.Error(err))
	}
}
