package types

import (
	"errors"
	"fmt"
	"time"
)

// SyncState is the per-collection synchronization state
type SyncState string

const (
	StateNeverSynced SyncState = "never_synced"
	StateSyncing     SyncState = "syncing"
	StateInSync      SyncState = "in_sync"
	StatePartialSync SyncState = "partial_sync"
	StateSyncError   SyncState = "sync_error"

	// StateOutOfSync is derived for display and never persisted
	StateOutOfSync SyncState = "out_of_sync"
)

// DefaultMaxErrors bounds the errors and warnings kept on a status
const DefaultMaxErrors = 20

var transitions = map[SyncState][]SyncState{
	StateNeverSynced: {StateSyncing},
	StateSyncing:     {StateInSync, StatePartialSync, StateSyncError},
	StateInSync:      {StateSyncing, StateNeverSynced},
	StatePartialSync: {StateSyncing, StateNeverSynced},
	StateSyncError:   {StateSyncing, StateNeverSynced},
}

// Valid reports whether s may be persisted
func (s SyncState) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no run is active in state s
func (s SyncState) Terminal() bool {
	return s.Valid() && s != StateSyncing
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s SyncState) CanTransitionTo(next SyncState) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SyncProgress is the live counter set of a running sync
type SyncProgress struct {
	StartedAt time.Time `json:"started_at"`
	Planned   int       `json:"planned"` // files to add, modify or delete
	Unchanged int       `json:"unchanged"`
	Attempted int       `json:"attempted"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Removed   int       `json:"removed"` // deleted files, included in Succeeded
	Current   string    `json:"current,omitempty"` // path being processed
}

// syncedFiles counts the live files whose chunks match their content
func (p *SyncProgress) syncedFiles() int {
	return p.Unchanged + p.Succeeded - p.Removed
}

// SyncStatus is the persisted state of one collection
type SyncStatus struct {
	Collection       string
	State            SyncState
	RunID            string
	TotalFiles       int
	SyncedFiles      int
	FailedFiles      int
	ChunkCount       int
	LastSyncTime     time.Time
	LastSyncDuration time.Duration
	LastError        string
	Errors           []string
	Warnings         []string
	Progress         *SyncProgress // non-nil exactly while syncing
	UpdatedAt        time.Time
}

// NewSyncStatus returns the status of a collection that was never synced
func NewSyncStatus(collection string) *SyncStatus {
	return &SyncStatus{
		Collection: collection,
		State:      StateNeverSynced,
	}
}

// transition moves the status to next or fails with ErrIllegalTransition
func (s *SyncStatus) transition(next SyncState) error {
	if !s.State.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.State, next)
	}
	s.State = next
	return nil
}

// BeginRun enters syncing for a new run
func (s *SyncStatus) BeginRun(runID string, now time.Time) error {
	if err := s.transition(StateSyncing); err != nil {
		return err
	}
	s.RunID = runID
	s.LastError = ""
	s.Errors = nil
	s.Warnings = nil
	s.Progress = &SyncProgress{StartedAt: now}
	s.UpdatedAt = now
	return nil
}

// RecordError appends a run error, keeping the first max entries
func (s *SyncStatus) RecordError(msg string, max int) {
	if max <= 0 {
		max = DefaultMaxErrors
	}
	if len(s.Errors) < max {
		s.Errors = append(s.Errors, msg)
	}
	if s.LastError == "" {
		s.LastError = msg
	}
}

// RecordWarning appends a run warning, keeping the first max entries
func (s *SyncStatus) RecordWarning(msg string, max int) {
	if max <= 0 {
		max = DefaultMaxErrors
	}
	if len(s.Warnings) < max {
		s.Warnings = append(s.Warnings, msg)
	}
}

// FinishRun leaves syncing. The final state follows from the progress
// counters: no failures is in_sync, a mix of successes and failures is
// partial_sync, nothing succeeded is sync_error. A cancelled run is never
// in_sync.
func (s *SyncStatus) FinishRun(now time.Time, cancelled bool) error {
	if s.State != StateSyncing || s.Progress == nil {
		return fmt.Errorf("%w: finish from %s", ErrIllegalTransition, s.State)
	}
	p := s.Progress
	done := p.Unchanged + p.Succeeded

	var next SyncState
	switch {
	case cancelled && done > 0:
		next = StatePartialSync
	case cancelled:
		next = StateSyncError
	case p.Failed == 0:
		next = StateInSync
	case done > 0:
		next = StatePartialSync
	default:
		next = StateSyncError
	}
	if cancelled && s.LastError == "" {
		s.LastError = "sync cancelled"
	}

	s.SyncedFiles = p.syncedFiles()
	s.FailedFiles = p.Failed
	s.LastSyncTime = now
	s.LastSyncDuration = now.Sub(p.StartedAt)
	s.Progress = nil
	s.UpdatedAt = now
	return s.transition(next)
}

// Fail ends the run with sync_error because of a run-level error
func (s *SyncStatus) Fail(err error, now time.Time) error {
	if s.State != StateSyncing {
		return fmt.Errorf("%w: fail from %s", ErrIllegalTransition, s.State)
	}
	msg := err.Error()
	s.LastError = msg
	s.RecordError(msg, DefaultMaxErrors)
	if s.Progress != nil {
		s.LastSyncDuration = now.Sub(s.Progress.StartedAt)
		s.FailedFiles = s.Progress.Failed
		s.SyncedFiles = s.Progress.syncedFiles()
	}
	s.LastSyncTime = now
	s.Progress = nil
	s.UpdatedAt = now
	return s.transition(StateSyncError)
}

// MarkInterrupted recovers a syncing status whose run no longer exists
func (s *SyncStatus) MarkInterrupted(now time.Time) error {
	return s.Fail(errors.New("sync interrupted: no active run"), now)
}

// Reset returns the status to never_synced, as after purging the index
func (s *SyncStatus) Reset(now time.Time) error {
	if s.State == StateSyncing {
		return fmt.Errorf("%w: reset while syncing", ErrIllegalTransition)
	}
	*s = SyncStatus{
		Collection: s.Collection,
		State:      StateNeverSynced,
		UpdatedAt:  now,
	}
	return nil
}

// Validate checks the structural invariants of the status
func (s *SyncStatus) Validate() error {
	if s.Collection == "" {
		return ErrCollectionMissing
	}
	if !s.State.Valid() {
		return fmt.Errorf("invalid sync state %q", s.State)
	}
	if (s.State == StateSyncing) != (s.Progress != nil) {
		return errors.New("progress must be present exactly while syncing")
	}
	if s.TotalFiles < 0 || s.SyncedFiles < 0 || s.FailedFiles < 0 || s.ChunkCount < 0 {
		return errors.New("counters must be non-negative")
	}
	if p := s.Progress; p != nil && p.Succeeded+p.Failed != p.Attempted {
		return errors.New("attempted files must equal succeeded plus failed")
	}
	return nil
}

// Clone returns a deep copy of the status
func (s *SyncStatus) Clone() *SyncStatus {
	if s == nil {
		return nil
	}
	c := *s
	c.Errors = append([]string(nil), s.Errors...)
	c.Warnings = append([]string(nil), s.Warnings...)
	if s.Progress != nil {
		p := *s.Progress
		c.Progress = &p
	}
	return &c
}

// DisplayState derives the user-facing state. An in_sync collection with
// pending source changes is shown as out_of_sync.
func DisplayState(s *SyncStatus, pending bool) SyncState {
	if s.State == StateInSync && pending {
		return StateOutOfSync
	}
	return s.State
}
