// Package archive streams a workspace manifest into the zip artifact that is
// uploaded as a submission.
package archive

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/zeebo/blake3"

	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
	"git.home.luguber.info/inful/tcide/internal/logfields"
)

// Warning describes an anomaly that did not stop the build.
type Warning struct {
	File    string
	Message string
}

// Result summarizes a finished archive.
type Result struct {
	Path   string
	Files  int
	Bytes  int64
	Digest string // BLAKE3, hex
}

// Option configures Build.
type Option func(*builder)

// WithWarningHandler replaces the default handler, which logs at warn level.
func WithWarningHandler(fn func(Warning)) Option {
	return func(b *builder) {
		if fn != nil {
			b.warn = fn
		}
	}
}

// WithLevel sets the deflate compression level (flate.BestSpeed through
// flate.BestCompression).
func WithLevel(level int) Option {
	return func(b *builder) { b.level = level }
}

type builder struct {
	warn  func(Warning)
	level int
}

func logWarning(w Warning) {
	slog.Warn("Archive warning", logfields.File(w.File), slog.String("warning", w.Message))
}

// Build writes files, which must live under root, into a zip archive at dest.
// Entries are named by their slash-separated path relative to root. Each file
// is streamed, so memory use does not grow with the workspace.
//
// On error the archive at dest is incomplete and the caller removes it.
func Build(ctx context.Context, root string, files []string, dest string, opts ...Option) (Result, error) {
	b := &builder{warn: logWarning, level: flate.DefaultCompression}
	for _, opt := range opts {
		opt(b)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) // #nosec G304 -- destination is derived from the workspace root
	if err != nil {
		return Result{}, errors.WrapError(err, errors.CategoryArchive, "failed to create archive").
			WithContext("path", dest).
			Build()
	}

	hasher := blake3.New()
	counter := &countingWriter{}
	zw := zip.NewWriter(io.MultiWriter(out, hasher, counter))
	level := b.level
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			_ = out.Close()
			return Result{}, errors.WrapError(err, errors.CategoryArchive, "archive build canceled").Build()
		}
		if err := b.add(zw, root, file); err != nil {
			_ = out.Close()
			return Result{}, err
		}
	}

	if err := zw.Close(); err != nil {
		_ = out.Close()
		return Result{}, errors.WrapError(err, errors.CategoryArchive, "failed to finalize archive").
			WithContext("path", dest).
			Build()
	}
	if err := out.Close(); err != nil {
		return Result{}, errors.WrapError(err, errors.CategoryArchive, "failed to close archive").
			WithContext("path", dest).
			Build()
	}

	return Result{
		Path:   dest,
		Files:  len(files),
		Bytes:  counter.n,
		Digest: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func (b *builder) add(zw *zip.Writer, root, file string) error {
	name, err := entryName(root, file)
	if err != nil {
		return err
	}

	f, err := os.Open(file) // #nosec G304 -- paths come from the workspace walk
	if err != nil {
		return errors.WrapError(err, errors.CategoryArchive, "failed to open file for archiving").
			WithContext("file", name).
			Build()
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return errors.WrapError(err, errors.CategoryArchive, "failed to stat file for archiving").
			WithContext("file", name).
			Build()
	}
	if info.Mode().Perm()&0o400 == 0 {
		b.warn(Warning{File: name, Message: "file is not owner-readable"})
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return errors.WrapError(err, errors.CategoryArchive, "failed to build archive entry").
			WithContext("file", name).
			Build()
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return errors.WrapError(err, errors.CategoryArchive, "failed to add archive entry").
			WithContext("file", name).
			Build()
	}
	n, err := io.Copy(w, f)
	if err != nil {
		return errors.WrapError(err, errors.CategoryArchive, "failed to write archive entry").
			WithContext("file", name).
			Build()
	}
	if n != info.Size() {
		b.warn(Warning{File: name, Message: fmt.Sprintf("file size changed while archiving (%d -> %d bytes)", info.Size(), n)})
	}
	return nil
}

func entryName(root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", errors.ArchiveError("file is outside the workspace").
			WithContext("file", file).
			WithContext("root", root).
			Build()
	}
	return filepath.ToSlash(rel), nil
}

type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
