package workspace

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
	"git.home.luguber.info/inful/tcide/internal/logfields"
)

// Matcher reports whether a path relative to the workspace root is excluded.
type Matcher interface {
	Match(rel string, isDir bool) bool
}

// Manifest is the ordered set of files selected for one submission attempt.
type Manifest struct {
	Root  string
	Files []string // absolute paths, in walk order
}

// Len returns the number of files in the manifest.
func (m Manifest) Len() int { return len(m.Files) }

// Rel returns the slash-separated path of file i relative to Root.
func (m Manifest) Rel(i int) string {
	rel, err := filepath.Rel(m.Root, m.Files[i])
	if err != nil {
		return filepath.ToSlash(m.Files[i])
	}
	return filepath.ToSlash(rel)
}

// RelPaths returns every manifest entry as a relative slash path.
func (m Manifest) RelPaths() []string {
	out := make([]string, len(m.Files))
	for i := range m.Files {
		out[i] = m.Rel(i)
	}
	return out
}

// Walk enumerates the files under root that m does not exclude. Excluded
// directories are not descended into. Within a directory entries are visited
// in lexical order, so repeated walks of an unchanged tree agree.
//
// A directory that cannot be read aborts the walk. Symlinks to regular files
// are included; symlinks to directories are skipped; dangling symlinks abort.
func Walk(root string, m Matcher) (Manifest, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Manifest{}, errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve workspace root").
			WithContext("path", root).
			Build()
	}
	manifest := Manifest{Root: abs}

	// Directories still to visit, relative to abs. os.ReadDir sorts by name;
	// children are pushed in reverse so popping keeps that order.
	stack := []string{""}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(filepath.Join(abs, dir))
		if err != nil {
			return Manifest{}, errors.WrapError(err, errors.CategoryFileSystem, "failed to read workspace directory").
				WithContext("path", filepath.Join(abs, dir)).
				Build()
		}

		var subdirs []string
		for _, entry := range entries {
			rel := filepath.Join(dir, entry.Name())
			full := filepath.Join(abs, rel)

			// Excluded links are never resolved, so a dangling ignored link is harmless.
			if entry.Type()&fs.ModeSymlink != 0 && m.Match(rel, false) {
				continue
			}
			isDir, include, err := classify(full, entry)
			if err != nil {
				return Manifest{}, err
			}
			if !include {
				continue
			}
			if m.Match(rel, isDir) {
				continue
			}
			if isDir {
				subdirs = append(subdirs, rel)
				continue
			}
			manifest.Files = append(manifest.Files, full)
		}
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}

	return manifest, nil
}

// classify resolves what an entry is. include is false for entries that are
// neither regular files nor real directories (sockets, devices, symlinked
// directories).
func classify(full string, entry fs.DirEntry) (isDir, include bool, err error) {
	mode := entry.Type()
	switch {
	case mode.IsDir():
		return true, true, nil
	case mode.IsRegular():
		return false, true, nil
	case mode&fs.ModeSymlink != 0:
		target, err := os.Stat(full)
		if err != nil {
			return false, false, errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve symlink in workspace").
				WithContext("path", full).
				Build()
		}
		if target.IsDir() {
			slog.Debug("Not following directory symlink", logfields.Path(full))
			return true, false, nil
		}
		return false, target.Mode().IsRegular(), nil
	default:
		slog.Debug("Skipping special file", logfields.Path(full))
		return false, false, nil
	}
}
