package history

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func appendJSON(t *testing.T, s Store, attemptID, typ string, v any) {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, s.Append(t.Context(), attemptID, typ, payload, map[string]string{"source": "test"}))
}

func TestAppendAndByAttempt(t *testing.T) {
	s := newStore(t)
	appendJSON(t, s, "a1", TypeAttemptStarted, AttemptStarted{ChallengeID: "123"})
	appendJSON(t, s, "a2", TypeAttemptStarted, AttemptStarted{ChallengeID: "456"})
	appendJSON(t, s, "a1", TypeArchiveBuilt, ArchiveBuilt{Files: 2})

	events, err := s.ByAttempt(t.Context(), "a1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, TypeAttemptStarted, events[0].Type)
	require.Equal(t, TypeArchiveBuilt, events[1].Type)
	require.Equal(t, "test", events[0].Metadata["source"])
	require.False(t, events[0].Timestamp.IsZero())
	require.Less(t, events[0].ID, events[1].ID)

	none, err := s.ByAttempt(t.Context(), "missing")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestAppendNilPayloadAndMetadata(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Append(t.Context(), "a", TypeAttemptStarted, nil, nil))

	events, err := s.ByAttempt(t.Context(), "a")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.JSONEq(t, `{}`, string(events[0].Payload))
	require.Nil(t, events[0].Metadata)
}

func TestRecentLimitsAttempts(t *testing.T) {
	s := newStore(t)
	for i := range 5 {
		id := fmt.Sprintf("a%d", i)
		appendJSON(t, s, id, TypeAttemptStarted, AttemptStarted{ChallengeID: id})
		appendJSON(t, s, id, TypeStageFailed, StageFailed{Stage: "fetch_details"})
	}

	events, err := s.Recent(t.Context(), 2)
	require.NoError(t, err)
	require.Len(t, events, 4)
	require.Equal(t, "a3", events[0].AttemptID)
	require.Equal(t, "a4", events[3].AttemptID)
}

func TestSummarize(t *testing.T) {
	s := newStore(t)
	appendJSON(t, s, "ok", TypeAttemptStarted, AttemptStarted{ChallengeID: "123", Workspace: "/w"})
	appendJSON(t, s, "ok", TypeArchiveBuilt, ArchiveBuilt{Files: 3, Bytes: 900, Digest: "abc"})
	appendJSON(t, s, "ok", TypeSubmissionUploaded, SubmissionUploaded{SubmissionID: "sub-1", ChallengeID: "123", DurationMS: 40})
	appendJSON(t, s, "bad", TypeAttemptStarted, AttemptStarted{ChallengeID: "456"})
	appendJSON(t, s, "bad", TypeStageFailed, StageFailed{Stage: "check_eligibility", Message: "not registered"})
	require.NoError(t, s.Append(t.Context(), "running", TypeAttemptStarted, []byte("not json"), nil))

	events, err := s.Recent(t.Context(), 10)
	require.NoError(t, err)
	summaries := Summarize(events)
	require.Len(t, summaries, 3)

	require.Equal(t, "running", summaries[0].AttemptID)
	require.Equal(t, StatusRunning, summaries[0].Status)
	require.Empty(t, summaries[0].ChallengeID)

	require.Equal(t, "bad", summaries[1].AttemptID)
	require.Equal(t, StatusFailed, summaries[1].Status)
	require.Equal(t, "check_eligibility", summaries[1].FailedStage)
	require.Equal(t, "not registered", summaries[1].Error)

	ok := summaries[2]
	require.Equal(t, StatusUploaded, ok.Status)
	require.Equal(t, "sub-1", ok.SubmissionID)
	require.Equal(t, 3, ok.Files)
	require.Equal(t, int64(900), ok.Bytes)
	require.Equal(t, "/w", ok.Workspace)
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	appendJSON(t, s, "a", TypeAttemptStarted, AttemptStarted{ChallengeID: "1"})
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	events, err := s.ByAttempt(t.Context(), "a")
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestOpenFailureIsClassified(t *testing.T) {
	dir := t.TempDir()
	_, err := NewSQLiteStore(dir) // a directory is not a database
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryHistory))
}
