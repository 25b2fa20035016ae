package syncer

import "sync/atomic"

// runLock is the single-writer guard of one collection. It never blocks:
// a second writer is told to go away instead of queueing.
type runLock struct {
	state atomic.Int32 // 0 = free, 1 = held
}

// TryAcquire takes the lock if it is free
func (l *runLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Held reports whether a writer owns the collection
func (l *runLock) Held() bool {
	return l.state.Load() == 1
}

// Release frees the lock. Only the owner may call it.
func (l *runLock) Release() {
	l.state.Store(0)
}
