package workspace

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
)

// LockName is the file that marks a submission in progress in a workspace.
const LockName = ".tcide-submit.lock"

// LockIgnoreRule excludes the lock file from the walk of its own workspace.
const LockIgnoreRule = "/" + LockName

// StaleLockAge is the age after which a lock left by a crashed process is
// taken over. A live holder refreshes the lock's mtime well within it.
const StaleLockAge = 15 * time.Minute

// lockRefreshInterval is how often a held lock is touched.
var lockRefreshInterval = StaleLockAge / 3

// ErrSubmissionInProgress is returned when another process holds the lock.
var ErrSubmissionInProgress = errors.NewError(errors.CategorySubmission,
	"another submission is already running for this workspace").UserAction().Build()

type lockInfo struct {
	PID     int       `json:"pid"`
	Started time.Time `json:"started"`
	Token   string    `json:"token"`
}

// FileLock is an advisory, cross-process lock on one workspace.
type FileLock struct {
	path    string
	content []byte
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// AcquireFileLock creates the lock file of root exclusively. A lock whose
// mtime is older than StaleLockAge is considered abandoned and replaced.
func AcquireFileLock(root string) (*FileLock, error) {
	path := filepath.Join(root, LockName)
	content, err := json.Marshal(lockInfo{PID: os.Getpid(), Started: time.Now(), Token: uuid.NewString()})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "failed to encode workspace lock").Build()
	}
	for range 2 {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, werr := f.Write(content)
			cerr := f.Close()
			if werr == nil {
				werr = cerr
			}
			if werr != nil {
				_ = os.Remove(path)
				return nil, errors.WrapError(werr, errors.CategoryFileSystem, "failed to write workspace lock").
					WithContext("path", path).
					Build()
			}
			l := &FileLock{path: path, content: content, stop: make(chan struct{}), done: make(chan struct{})}
			go l.refresh()
			return l, nil
		}
		if !os.IsExist(err) {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to create workspace lock").
				WithContext("path", path).
				Build()
		}
		if !breakStaleLock(path) {
			return nil, ErrSubmissionInProgress.WithContext("path", path)
		}
	}
	return nil, ErrSubmissionInProgress.WithContext("path", path)
}

// breakStaleLock moves an abandoned lock out of the way. The lock is renamed
// aside first and compared with what was judged stale; a lock that changed in
// between belongs to a new holder and is linked back into place.
func breakStaleLock(path string) bool {
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) < StaleLockAge {
		return false
	}
	stale, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	aside := path + "." + uuid.NewString()
	if err := os.Rename(path, aside); err != nil {
		return false
	}
	defer func() { _ = os.Remove(aside) }()

	moved, err := os.ReadFile(aside)
	if err == nil && bytes.Equal(moved, stale) {
		return true
	}
	_ = os.Link(aside, path)
	return false
}

func (l *FileLock) refresh() {
	defer close(l.done)
	ticker := time.NewTicker(lockRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			if !l.owned() {
				return
			}
			now := time.Now()
			_ = os.Chtimes(l.path, now, now)
		}
	}
}

// owned reports whether the lock file still carries this holder's content.
func (l *FileLock) owned() bool {
	data, err := os.ReadFile(l.path)
	return err == nil && bytes.Equal(data, l.content)
}

// Release removes the lock file unless another holder has taken it over.
func (l *FileLock) Release() error {
	if l == nil {
		return nil
	}
	var err error
	l.once.Do(func() {
		close(l.stop)
		<-l.done
		if !l.owned() {
			return
		}
		if rerr := os.Remove(l.path); rerr != nil && !os.IsNotExist(rerr) {
			err = errors.WrapError(rerr, errors.CategoryFileSystem, "failed to release workspace lock").
				WithContext("path", l.path).
				Build()
		}
	})
	return err
}
