package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
	"git.home.luguber.info/inful/tcide/internal/logfields"
)

// ArtifactName is the file name of the temporary submission archive.
const ArtifactName = "submit.zip"

// ArtifactIgnoreRule excludes the artifact from the walk of its own workspace.
const ArtifactIgnoreRule = "/" + ArtifactName

// ArtifactManager owns the temporary archive of one submission attempt. The
// path is derived from the workspace root, so attempts on different
// workspaces never collide.
type ArtifactManager struct {
	path    string
	mu      sync.Mutex
	created bool
	removed bool
}

// NewArtifactManager returns the manager for the artifact of root.
func NewArtifactManager(root string) *ArtifactManager {
	return &ArtifactManager{path: filepath.Join(root, ArtifactName)}
}

// Path returns the location of the artifact.
func (a *ArtifactManager) Path() string {
	return a.path
}

// Create prepares the artifact path, removing an artifact a previous crashed
// attempt may have left behind.
func (a *ArtifactManager) Create() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.Remove(a.path); err != nil && !os.IsNotExist(err) {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to remove stale submission archive").
			WithContext("path", a.path).
			Build()
	}
	a.created = true
	a.removed = false
	return nil
}

// Cleanup removes the artifact. It is safe to call more than once; only the
// first call after Create touches the filesystem.
func (a *ArtifactManager) Cleanup() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.created || a.removed {
		return nil
	}
	a.removed = true
	if err := os.Remove(a.path); err != nil && !os.IsNotExist(err) {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to remove submission archive").
			WithContext("path", a.path).
			Build()
	}
	slog.Debug("Removed submission archive", logfields.Path(a.path))
	return nil
}

// Scratch is a temporary directory removed as a whole on Cleanup.
type Scratch struct {
	baseDir string
	prefix  string
	dir     string
}

// NewScratch returns a scratch directory manager rooted at baseDir
// (os.TempDir when empty).
func NewScratch(baseDir, prefix string) *Scratch {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if prefix == "" {
		prefix = "tcide"
	}
	return &Scratch{baseDir: baseDir, prefix: prefix}
}

// Create makes a fresh, uniquely named scratch directory.
func (s *Scratch) Create() error {
	dir, err := os.MkdirTemp(s.baseDir, s.prefix+"-")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	s.dir = dir
	slog.Debug("Created scratch directory", logfields.Path(dir))
	return nil
}

// Path returns the scratch directory, empty before Create.
func (s *Scratch) Path() string {
	return s.dir
}

// Cleanup removes the scratch directory.
func (s *Scratch) Cleanup() error {
	if s.dir == "" {
		return nil
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to clean up scratch directory: %w", err)
	}
	slog.Debug("Cleaned up scratch directory", logfields.Path(s.dir))
	s.dir = ""
	return nil
}
