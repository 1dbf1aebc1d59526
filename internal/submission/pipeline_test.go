package submission

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/tcide/internal/auth"
	"git.home.luguber.info/inful/tcide/internal/challenge"
	"git.home.luguber.info/inful/tcide/internal/history"
	"git.home.luguber.info/inful/tcide/internal/workspace"
)

type fakeAPI struct {
	mu         sync.Mutex
	details    *challenge.Details
	detailsErr error
	uploadErr  error
	// noRecord makes a successful upload answer without a submission.
	noRecord bool
	// onUpload runs while the upload is in flight.
	onUpload func()

	detailCalls int
	uploads     []challenge.Upload
	entries     []string
}

func (f *fakeAPI) ChallengeDetails(_ context.Context, id, _ string) (*challenge.Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if f.detailsErr != nil {
		return nil, f.detailsErr
	}
	d := *f.details
	d.ChallengeID = challenge.ID(id)
	return &d, nil
}

func (f *fakeAPI) CreateSubmission(ctx context.Context, up challenge.Upload, _ string) (*challenge.Submission, error) {
	if f.onUpload != nil {
		f.onUpload()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(up.Data)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, up)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if f.noRecord {
		return nil, nil
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	f.entries = f.entries[:0]
	for _, e := range zr.File {
		f.entries = append(f.entries, e.Name)
	}
	sort.Strings(f.entries)
	return &challenge.Submission{ID: "sub-1", ChallengeID: challenge.ID(up.ChallengeID), MemberID: challenge.ID(up.MemberID)}, nil
}

func (f *fakeAPI) calls() (details, uploads int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailCalls, len(f.uploads)
}

func openChallenge(handles ...string) *challenge.Details {
	d := &challenge.Details{
		Phases: []challenge.Phase{{Type: challenge.PhaseSubmission, Status: challenge.StatusOpen}},
	}
	for _, h := range handles {
		d.Registrants = append(d.Registrants, challenge.Registrant{Handle: h})
	}
	return d
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}
}

func sampleWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		".topcoderrc":         `{"challengeId": "30001"}`,
		".gitignore":          "node_modules/\n*.log\n",
		"src/a.ts":            "export const a = 1\n",
		"node_modules/x/y.js": "ignored",
		"debug.log":           "ignored",
		".git/HEAD":           "ref: refs/heads/main\n",
	})
	return root
}

func request(root string) Request {
	return Request{
		Workspace: root,
		Token:     "token",
		Identity:  auth.Identity{Handle: "alice", UserID: "4242"},
	}
}

func stageRecorder() (func(Stage), func() []Stage) {
	var mu sync.Mutex
	var seen []Stage
	return func(s Stage) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, s)
		}, func() []Stage {
			mu.Lock()
			defer mu.Unlock()
			return append([]Stage(nil), seen...)
		}
}

func TestRunUploadsFilteredWorkspace(t *testing.T) {
	root := sampleWorkspace(t)
	api := &fakeAPI{details: openChallenge("alice")}
	observe, stages := stageRecorder()

	sub, err := New(api, WithStageObserver(observe)).Run(t.Context(), request(root))
	require.NoError(t, err)
	require.Equal(t, challenge.ID("sub-1"), sub.ID)

	require.Equal(t, []string{".gitignore", ".topcoderrc", "src/a.ts"}, api.entries)
	require.Len(t, api.uploads, 1)
	up := api.uploads[0]
	require.Equal(t, workspace.ArtifactName, up.Name)
	require.Equal(t, "30001", up.ChallengeID)
	require.Equal(t, "4242", up.MemberID)
	require.Equal(t, challenge.SubmissionType, up.Type)

	require.Equal(t, []Stage{
		StageReadMarker, StageValidateMarker, StageLockWorkspace, StageFetchDetails,
		StageCheckEligibility, StageBuildIgnoreRules, StageWalk, StageArchive,
		StageUpload, StageCleanup,
	}, stages())

	require.NoFileExists(t, filepath.Join(root, workspace.ArtifactName))
	require.NoFileExists(t, filepath.Join(root, workspace.LockName))
}

func TestRunMissingMarkerMakesNoCalls(t *testing.T) {
	root := t.TempDir()
	api := &fakeAPI{details: openChallenge("alice")}

	_, err := New(api).Run(t.Context(), request(root))
	require.ErrorIs(t, err, ErrMissingMarker)

	details, uploads := api.calls()
	require.Zero(t, details)
	require.Zero(t, uploads)
}

func TestRunMarkerErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		marker string
		want   error
	}{
		"malformed":  {marker: "{not json", want: ErrMalformedMarker},
		"missing id": {marker: `{"other": 1}`, want: ErrMissingChallengeID},
		"blank id":   {marker: `{"challengeId": "  "}`, want: ErrMissingChallengeID},
	} {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			writeFiles(t, root, map[string]string{workspace.MarkerFile: tc.marker})
			api := &fakeAPI{details: openChallenge("alice")}

			_, err := New(api).Run(t.Context(), request(root))
			require.ErrorIs(t, err, tc.want)
			details, _ := api.calls()
			require.Zero(t, details)
		})
	}
}

func TestRunRejectsUnregisteredBeforeWalking(t *testing.T) {
	root := sampleWorkspace(t)
	api := &fakeAPI{details: openChallenge("bob")}
	observe, stages := stageRecorder()

	_, err := New(api, WithStageObserver(observe)).Run(t.Context(), request(root))
	require.ErrorIs(t, err, ErrNotRegistered)
	require.NotContains(t, stages(), StageWalk)
	require.NotContains(t, stages(), StageArchive)
	_, uploads := api.calls()
	require.Zero(t, uploads)
}

func TestRunRejectsClosedSubmissionPhase(t *testing.T) {
	root := sampleWorkspace(t)
	d := openChallenge("alice")
	d.Phases[0].Status = "Closed"
	api := &fakeAPI{details: d}

	_, err := New(api).Run(t.Context(), request(root))
	require.ErrorIs(t, err, ErrSubmissionPhaseClosed)
}

func TestRunChallengeFetchFailure(t *testing.T) {
	root := sampleWorkspace(t)
	cause := stderrors.New("connection refused")
	api := &fakeAPI{detailsErr: cause}

	_, err := New(api).Run(t.Context(), request(root))
	require.ErrorIs(t, err, ErrChallengeFetchFailed)
	require.ErrorIs(t, err, cause)
}

func TestRunRemovesArchiveWhenArchivingFails(t *testing.T) {
	root := sampleWorkspace(t)
	api := &fakeAPI{details: openChallenge("alice")}
	// The file disappears between the walk and the archive.
	observe := func(s Stage) {
		if s == StageArchive {
			require.NoError(t, os.Remove(filepath.Join(root, "src", "a.ts")))
		}
	}

	_, err := New(api, WithStageObserver(observe)).Run(t.Context(), request(root))
	require.ErrorIs(t, err, ErrArchive)
	require.NoFileExists(t, filepath.Join(root, workspace.ArtifactName))
	_, uploads := api.calls()
	require.Zero(t, uploads)
}

func TestRunWithoutSubmissionRecordFails(t *testing.T) {
	root := sampleWorkspace(t)
	api := &fakeAPI{details: openChallenge("alice"), noRecord: true}

	sub, err := New(api).Run(t.Context(), request(root))
	require.ErrorIs(t, err, ErrSubmissionUploadFailed)
	require.Nil(t, sub)
	require.NoFileExists(t, filepath.Join(root, workspace.ArtifactName))
}

func TestRunReportsMarkerBeforeToken(t *testing.T) {
	badToken := Request{Token: "not-a-jwt"}

	root := t.TempDir()
	badToken.Workspace = root
	_, err := New(&fakeAPI{details: openChallenge("alice")}).Run(t.Context(), badToken)
	require.ErrorIs(t, err, ErrMissingMarker)

	writeFiles(t, root, map[string]string{workspace.MarkerFile: "{not json"})
	_, err = New(&fakeAPI{details: openChallenge("alice")}).Run(t.Context(), badToken)
	require.ErrorIs(t, err, ErrMalformedMarker)

	writeFiles(t, root, map[string]string{workspace.MarkerFile: `{"challengeId": "1"}`})
	api := &fakeAPI{details: openChallenge("alice")}
	_, err = New(api).Run(t.Context(), badToken)
	require.ErrorIs(t, err, auth.ErrTokenInvalid)
	details, _ := api.calls()
	require.Zero(t, details)
}

func TestRunRemovesArchiveWhenUploadFails(t *testing.T) {
	root := sampleWorkspace(t)
	cause := stderrors.New("upstream rejected")
	api := &fakeAPI{details: openChallenge("alice"), uploadErr: cause}

	_, err := New(api).Run(t.Context(), request(root))
	require.ErrorIs(t, err, ErrSubmissionUploadFailed)
	require.ErrorIs(t, err, cause)
	require.NoFileExists(t, filepath.Join(root, workspace.ArtifactName))
	_, uploads := api.calls()
	require.Equal(t, 1, uploads)
}

func TestRunCanceledBeforeArchiveStops(t *testing.T) {
	root := sampleWorkspace(t)
	api := &fakeAPI{details: openChallenge("alice")}
	ctx, cancel := context.WithCancel(t.Context())
	observe := func(s Stage) {
		if s == StageCheckEligibility {
			cancel()
		}
	}

	_, err := New(api, WithStageObserver(observe)).Run(ctx, request(root))
	require.ErrorIs(t, err, ErrCanceled)
	require.ErrorIs(t, err, context.Canceled)
	_, uploads := api.calls()
	require.Zero(t, uploads)
}

func TestRunCanceledDuringArchiveStillUploads(t *testing.T) {
	root := sampleWorkspace(t)
	ctx, cancel := context.WithCancel(t.Context())
	api := &fakeAPI{details: openChallenge("alice")}
	observe := func(s Stage) {
		if s == StageArchive {
			cancel()
		}
	}

	sub, err := New(api, WithStageObserver(observe)).Run(ctx, request(root))
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.NoFileExists(t, filepath.Join(root, workspace.ArtifactName))
}

func TestRunSerializesSameWorkspace(t *testing.T) {
	root := sampleWorkspace(t)
	var active, peak atomic.Int32
	api := &fakeAPI{details: openChallenge("alice")}
	api.onUpload = func() {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
	}
	p := New(api)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = p.Run(t.Context(), request(root))
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), peak.Load())
	_, uploads := api.calls()
	require.Equal(t, 4, uploads)
}

func TestRunRejectsForeignLock(t *testing.T) {
	root := sampleWorkspace(t)
	lock, err := workspace.AcquireFileLock(root)
	require.NoError(t, err)
	defer func() { _ = lock.Release() }()

	api := &fakeAPI{details: openChallenge("alice")}
	_, err = New(api).Run(t.Context(), request(root))
	require.ErrorIs(t, err, ErrInProgress)
	details, _ := api.calls()
	require.Zero(t, details)
}

func TestRunRecordsHistory(t *testing.T) {
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	root := sampleWorkspace(t)
	api := &fakeAPI{details: openChallenge("alice")}
	_, err = New(api, WithHistory(store)).Run(t.Context(), request(root))
	require.NoError(t, err)

	api.uploadErr = stderrors.New("boom")
	_, err = New(api, WithHistory(store)).Run(t.Context(), request(root))
	require.Error(t, err)

	events, err := store.Recent(t.Context(), 10)
	require.NoError(t, err)
	attempts := history.Summarize(events)
	require.Len(t, attempts, 2)
	require.Equal(t, history.StatusFailed, attempts[0].Status)
	require.Equal(t, string(StageUpload), attempts[0].FailedStage)
	require.Equal(t, history.StatusUploaded, attempts[1].Status)
	require.Equal(t, "sub-1", attempts[1].SubmissionID)
	require.Equal(t, "30001", attempts[1].ChallengeID)
}

func TestRunRequiresWorkspace(t *testing.T) {
	_, err := New(&fakeAPI{}).Run(t.Context(), Request{Workspace: " "})
	require.ErrorIs(t, err, ErrNoWorkspace)
}
