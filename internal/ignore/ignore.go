// Package ignore compiles gitignore-style rules into a path predicate used to
// decide which workspace files are packaged for submission.
package ignore

import (
	"bufio"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
	"git.home.luguber.info/inful/tcide/internal/logfields"
)

const (
	// FileName is the ignore file read from the workspace root.
	FileName = ".gitignore"
	// VCSDir is the version-control metadata directory, always excluded.
	VCSDir = ".git"
)

// Matcher decides whether a workspace-relative path is excluded.
type Matcher struct {
	matcher gitignore.Matcher
	rules   int
}

// Compile builds a Matcher from gitignore lines. Extra implicit rules are
// applied after the user rules, and the version-control directory rule is
// applied last so nothing can re-include it. Comments, blank lines and
// malformed patterns are skipped.
func Compile(patterns []string, implicit ...string) *Matcher {
	parsed := make([]gitignore.Pattern, 0, len(patterns)+len(implicit)+1)
	for _, line := range patterns {
		if p, ok := parseLine(line); ok {
			parsed = append(parsed, p)
		}
	}
	for _, line := range implicit {
		if p, ok := parseLine(line); ok {
			parsed = append(parsed, p)
		}
	}
	parsed = append(parsed, gitignore.ParsePattern(VCSDir, nil))
	return &Matcher{matcher: gitignore.NewMatcher(parsed), rules: len(parsed)}
}

// Load reads FileName from root and compiles it together with implicit rules.
// A missing ignore file yields the version-control-only matcher.
func Load(root string, implicit ...string) (*Matcher, error) {
	f, err := os.Open(filepath.Join(root, FileName))
	if os.IsNotExist(err) {
		return Compile(nil, implicit...), nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read ignore file").
			WithContext("path", filepath.Join(root, FileName)).
			Build()
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read ignore file").
			WithContext("path", filepath.Join(root, FileName)).
			Build()
	}
	return Compile(lines, implicit...), nil
}

// Match reports whether rel (slash or OS separated, relative to the
// workspace root) is excluded. isDir selects directory-only rules.
func (m *Matcher) Match(rel string, isDir bool) bool {
	parts := split(rel)
	if len(parts) == 0 {
		return false
	}
	return m.matcher.Match(parts, isDir)
}

// Matches is Match with the directory flag taken from a trailing slash.
func (m *Matcher) Matches(rel string) bool {
	return m.Match(rel, strings.HasSuffix(filepath.ToSlash(rel), "/"))
}

// Rules returns the number of compiled rules, implicit ones included.
func (m *Matcher) Rules() int { return m.rules }

func split(rel string) []string {
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return nil
	}
	return strings.Split(rel, "/")
}

// parseLine follows git's reading rules: blank lines and lines starting with
// '#' carry no pattern. Lines with a broken glob are skipped.
func parseLine(line string) (gitignore.Pattern, bool) {
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
		return nil, false
	}
	if !wellFormed(line) {
		slog.Debug("Skipping malformed ignore pattern", logfields.Pattern(line))
		return nil, false
	}
	return gitignore.ParsePattern(line, nil), true
}

// wellFormed reports whether every glob component of line compiles.
func wellFormed(line string) bool {
	body := strings.TrimPrefix(line, "!")
	body = strings.TrimSuffix(strings.TrimRight(body, " "), "/")
	if body == "" {
		return false
	}
	for _, part := range strings.Split(body, "/") {
		if part == "" || part == "**" {
			continue
		}
		if _, err := path.Match(part, ""); err != nil {
			return false
		}
	}
	return true
}
