// Package locks serializes mutation per record. The submit -> compute ->
// request -> apply chain is a strict causal sequence; its check-then-act
// steps must not interleave across goroutines for the same record.
package locks

import (
	"sync"

	"veil/pkg/domain"
)

// PerRecord hands out one mutex per record id. Entries are never evicted:
// records live for the process lifetime and the per-entry cost is one mutex.
type PerRecord struct {
	mus sync.Map // domain.RecordID -> *sync.Mutex
}

// NewPerRecord returns an empty lock table.
func NewPerRecord() *PerRecord {
	return &PerRecord{}
}

// Acquire locks the record's mutex and returns the release function.
//
//	release := locks.Acquire(id)
//	defer release()
func (l *PerRecord) Acquire(id domain.RecordID) (release func()) {
	v, _ := l.mus.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
