package errors

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type customError struct{ msg string }

func (e *customError) Error() string { return e.msg }

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation", ValidationError("invalid input").Build(), 2},
		{"marker", MarkerError("marker missing").Build(), 3},
		{"eligibility", EligibilityError("not registered").Build(), 4},
		{"auth", AuthError("unauthorized").Build(), 5},
		{"config", ConfigError("bad config").Build(), 7},
		{"network", NetworkError("unreachable").Build(), 8},
		{"archive", ArchiveError("zip failed").Build(), 11},
		{"unclassified", &customError{msg: "unknown error"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NetworkError("could not reach the challenge API").WithCause(cause).Build()

	t.Run("non-verbose hides cause", func(t *testing.T) {
		msg := NewCLIErrorAdapter(false, slog.Default()).FormatError(err)
		if msg != "Error: could not reach the challenge API" {
			t.Errorf("unexpected message %q", msg)
		}
	})

	t.Run("verbose shows cause", func(t *testing.T) {
		msg := NewCLIErrorAdapter(true, slog.Default()).FormatError(err)
		if !strings.Contains(msg, "connection refused") {
			t.Errorf("expected cause in verbose output, got %q", msg)
		}
	})

	t.Run("internal is masked", func(t *testing.T) {
		msg := NewCLIErrorAdapter(false, slog.Default()).FormatError(InternalError("boom").Build())
		if !strings.Contains(msg, "use -v") {
			t.Errorf("expected masked internal message, got %q", msg)
		}
	})

	t.Run("unclassified", func(t *testing.T) {
		msg := NewCLIErrorAdapter(false, slog.Default()).FormatError(&customError{msg: "oops"})
		if msg != "Error: oops" {
			t.Errorf("unexpected message %q", msg)
		}
	})
}

func TestCLIErrorAdapter_Report(t *testing.T) {
	var logs, out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	adapter := NewCLIErrorAdapter(false, logger)

	err := MarkerError("this workspace is not initialized").WithCause(errors.New("stat .topcoderrc: no such file")).Build()
	code := adapter.Report(err, &out)

	if code != 3 {
		t.Fatalf("expected exit code 3, got %d", code)
	}
	if strings.Contains(out.String(), "no such file") {
		t.Errorf("user output leaked cause: %q", out.String())
	}
	if !strings.Contains(logs.String(), "no such file") {
		t.Errorf("expected cause in logs, got %q", logs.String())
	}
}
