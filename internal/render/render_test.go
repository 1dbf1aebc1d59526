package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/tcide/internal/auth"
	"git.home.luguber.info/inful/tcide/internal/challenge"
	"git.home.luguber.info/inful/tcide/internal/history"
)

func TestOrdinal(t *testing.T) {
	for n, want := range map[int]string{
		1: "1st", 2: "2nd", 3: "3rd", 4: "4th", 10: "10th",
		11: "11th", 12: "12th", 13: "13th", 21: "21st", 22: "22nd", 101: "101st", 111: "111th",
	} {
		require.Equal(t, want, Ordinal(n), "n=%d", n)
	}
}

func TestMoney(t *testing.T) {
	require.Equal(t, "$1,500", Money(1500))
	require.Equal(t, "$250", Money(250))
	require.Equal(t, "$12.50", Money(12.5))
}

func TestHTMLText(t *testing.T) {
	in := `<p>Build a <b>REST</b> API.</p><ul><li>Node</li><li>Tests</li></ul><script>alert(1)</script><p>Done</p>`
	require.Equal(t, "Build a REST API.\n\n- Node\n- Tests\n\nDone", HTMLText(in))
	require.Equal(t, "plain words", HTMLText("  plain   words "))
	require.Empty(t, HTMLText(""))
}

func TestMarkdownText(t *testing.T) {
	in := "# Title\n\nSome *bold* text\nnext line.\n\n- one\n- two\n\n```\ncode\n```\n"
	require.Equal(t, "Title\n\nSome bold text next line.\n\n- one\n- two\n\ncode", MarkdownText(in))
}

func TestChallengeList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ChallengeList(&buf, []challenge.Summary{{
		ID:            "30001",
		Name:          "API Build",
		SubTrack:      "CODE",
		Registrants:   7,
		Prizes:        []float64{1500, 500},
		CurrentPhases: []challenge.CurrentPhase{{Type: "Submission", Status: "Open"}, {Type: "Review", Status: "Scheduled"}},
	}}))
	out := buf.String()
	require.Contains(t, out, "30001")
	require.Contains(t, out, "$1,500")
	require.Contains(t, out, "Submission")
	require.NotContains(t, out, "Review")

	buf.Reset()
	require.NoError(t, ChallengeList(&buf, nil))
	require.Equal(t, "No active challenges.\n", buf.String())
}

func TestChallengeDetails(t *testing.T) {
	d := &challenge.Details{
		ChallengeID:          "30001",
		Title:                "API Build",
		Registrants:          []challenge.Registrant{{Handle: "alice"}},
		Phases:               []challenge.Phase{{Type: challenge.PhaseSubmission, Status: challenge.StatusOpen}},
		Prizes:               []float64{1000, 500, 250},
		DetailedRequirements: "<p>Implement it.</p>",
	}
	var buf bytes.Buffer
	require.NoError(t, ChallengeDetails(&buf, d, auth.Identity{Handle: "alice"}))
	out := buf.String()
	require.Contains(t, out, "API Build")
	require.Contains(t, out, "3rd")
	require.Contains(t, out, "$250")
	require.Contains(t, out, "Implement it.")
	require.Regexp(t, `Registered:\s+yes`, out)
	require.Regexp(t, `Submission phase:\s+open`, out)
}

func TestReviews(t *testing.T) {
	score := 92.5
	var buf bytes.Buffer
	require.NoError(t, Reviews(&buf, []challenge.Review{
		{ID: "s1", Score: &score, Created: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), Artifacts: []string{"a1"}},
		{ID: "s2"},
	}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[1], "92.50")
	require.Contains(t, lines[2], "pending")
}

func TestHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, History(&buf, []history.AttemptSummary{
		{ChallengeID: "1", Status: history.StatusFailed, FailedStage: "upload", Error: "submission upload failed"},
		{ChallengeID: "2", Status: history.StatusUploaded, SubmissionID: "sub-9", Files: 3},
	}))
	out := buf.String()
	require.Contains(t, out, "upload: submission upload failed")
	require.Contains(t, out, "sub-9")
}
