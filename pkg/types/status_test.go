package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncState_Transitions(t *testing.T) {
	tests := []struct {
		from, to SyncState
		allowed  bool
	}{
		{StateNeverSynced, StateSyncing, true},
		{StateNeverSynced, StateInSync, false},
		{StateSyncing, StateInSync, true},
		{StateSyncing, StatePartialSync, true},
		{StateSyncing, StateSyncError, true},
		{StateSyncing, StateSyncing, false},
		{StateSyncing, StateNeverSynced, false},
		{StateInSync, StateSyncing, true},
		{StatePartialSync, StateSyncing, true},
		{StateSyncError, StateSyncing, true},
		{StateInSync, StateNeverSynced, true},
		{StateInSync, StateOutOfSync, false},
		{StateOutOfSync, StateSyncing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSyncState_OutOfSyncIsNotPersistable(t *testing.T) {
	assert.False(t, StateOutOfSync.Valid())
	assert.True(t, StateInSync.Terminal())
	assert.False(t, StateSyncing.Terminal())
}

func TestSyncStatus_RunLifecycle(t *testing.T) {
	start := time.Unix(1000, 0)
	end := start.Add(3 * time.Second)

	tests := []struct {
		name      string
		unchanged int
		succeeded int
		failed    int
		cancelled bool
		want      SyncState
	}{
		{"all succeeded", 0, 10, 0, false, StateInSync},
		{"nothing to do", 5, 0, 0, false, StateInSync},
		{"one of ten failed", 0, 9, 1, false, StatePartialSync},
		{"failures with unchanged files", 3, 0, 2, false, StatePartialSync},
		{"all failed", 0, 0, 4, false, StateSyncError},
		{"cancelled after progress", 0, 2, 0, true, StatePartialSync},
		{"cancelled before progress", 0, 0, 0, true, StateSyncError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSyncStatus("docs")
			require.NoError(t, s.BeginRun("run-1", start))
			require.NoError(t, s.Validate())
			assert.Equal(t, StateSyncing, s.State)
			require.NotNil(t, s.Progress)

			s.TotalFiles = tt.unchanged + tt.succeeded + tt.failed
			s.Progress.Unchanged = tt.unchanged
			s.Progress.Succeeded = tt.succeeded
			s.Progress.Failed = tt.failed
			s.Progress.Attempted = tt.succeeded + tt.failed

			require.NoError(t, s.FinishRun(end, tt.cancelled))
			assert.Equal(t, tt.want, s.State)
			assert.Nil(t, s.Progress)
			assert.Equal(t, tt.unchanged+tt.succeeded, s.SyncedFiles)
			assert.Equal(t, tt.failed, s.FailedFiles)
			assert.Equal(t, 3*time.Second, s.LastSyncDuration)
			assert.Equal(t, end, s.LastSyncTime)
			require.NoError(t, s.Validate())
		})
	}
}

func TestSyncStatus_RemovedFilesAreNotSynced(t *testing.T) {
	s := NewSyncStatus("docs")
	require.NoError(t, s.BeginRun("run-1", time.Now()))
	s.Progress.Unchanged = 2
	s.Progress.Attempted = 2
	s.Progress.Succeeded = 2
	s.Progress.Removed = 1

	require.NoError(t, s.FinishRun(time.Now(), false))
	assert.Equal(t, StateInSync, s.State)
	assert.Equal(t, 3, s.SyncedFiles)
}

func TestSyncStatus_BeginRunWhileSyncing(t *testing.T) {
	s := NewSyncStatus("docs")
	require.NoError(t, s.BeginRun("a", time.Now()))

	err := s.BeginRun("b", time.Now())
	assert.True(t, errors.Is(err, ErrIllegalTransition))
	assert.Equal(t, "a", s.RunID)
}

func TestSyncStatus_BeginRunClearsPreviousErrors(t *testing.T) {
	s := NewSyncStatus("docs")
	require.NoError(t, s.BeginRun("a", time.Now()))
	s.RecordError("x.md: embed: boom", 5)
	s.Progress.Attempted, s.Progress.Failed = 1, 1
	require.NoError(t, s.FinishRun(time.Now(), false))
	require.Equal(t, StateSyncError, s.State)
	require.NotEmpty(t, s.LastError)

	require.NoError(t, s.BeginRun("b", time.Now()))
	assert.Empty(t, s.Errors)
	assert.Empty(t, s.LastError)
}

func TestSyncStatus_RecordErrorIsBounded(t *testing.T) {
	s := NewSyncStatus("docs")
	for i := 0; i < 10; i++ {
		s.RecordError("e", 3)
		s.RecordWarning("w", 2)
	}
	assert.Len(t, s.Errors, 3)
	assert.Len(t, s.Warnings, 2)
	assert.Equal(t, "e", s.LastError)
}

func TestSyncStatus_FailAndInterrupt(t *testing.T) {
	s := NewSyncStatus("docs")
	require.NoError(t, s.BeginRun("a", time.Now()))
	require.NoError(t, s.Fail(&IndexUnavailableError{Op: "ping", Err: errors.New("refused")}, time.Now()))
	assert.Equal(t, StateSyncError, s.State)
	assert.Contains(t, s.LastError, "vector index unavailable")
	assert.Nil(t, s.Progress)

	require.NoError(t, s.BeginRun("b", time.Now()))
	require.NoError(t, s.MarkInterrupted(time.Now()))
	assert.Equal(t, StateSyncError, s.State)
	assert.Contains(t, s.LastError, "interrupted")

	assert.Error(t, s.MarkInterrupted(time.Now()), "only a syncing status can be interrupted")
}

func TestSyncStatus_Reset(t *testing.T) {
	s := NewSyncStatus("docs")
	require.NoError(t, s.BeginRun("a", time.Now()))
	assert.ErrorIs(t, s.Reset(time.Now()), ErrIllegalTransition)

	s.Progress.Attempted, s.Progress.Succeeded = 1, 1
	s.TotalFiles = 1
	s.ChunkCount = 4
	require.NoError(t, s.FinishRun(time.Now(), false))
	require.NoError(t, s.Reset(time.Now()))

	assert.Equal(t, StateNeverSynced, s.State)
	assert.Equal(t, "docs", s.Collection)
	assert.Zero(t, s.ChunkCount)
	assert.Zero(t, s.TotalFiles)
}

func TestSyncStatus_Validate(t *testing.T) {
	assert.ErrorIs(t, (&SyncStatus{State: StateInSync}).Validate(), ErrCollectionMissing)
	assert.Error(t, (&SyncStatus{Collection: "c", State: StateOutOfSync}).Validate())
	assert.Error(t, (&SyncStatus{Collection: "c", State: StateSyncing}).Validate())
	assert.Error(t, (&SyncStatus{Collection: "c", State: StateInSync, Progress: &SyncProgress{}}).Validate())
	assert.NoError(t, NewSyncStatus("c").Validate())
}

func TestSyncStatus_Clone(t *testing.T) {
	s := NewSyncStatus("docs")
	require.NoError(t, s.BeginRun("a", time.Now()))
	s.RecordError("first", 5)

	c := s.Clone()
	c.Errors[0] = "changed"
	c.Progress.Attempted = 7

	assert.Equal(t, "first", s.Errors[0])
	assert.Zero(t, s.Progress.Attempted)
}

func TestDisplayState(t *testing.T) {
	s := &SyncStatus{Collection: "docs", State: StateInSync}
	assert.Equal(t, StateInSync, DisplayState(s, false))
	assert.Equal(t, StateOutOfSync, DisplayState(s, true))

	s.State = StatePartialSync
	assert.Equal(t, StatePartialSync, DisplayState(s, true))
}
