package ledger

import (
	"sync"

	"github.com/aleister1102/pagewatch/internal/models"
)

// Ledger is the bounded, append-only change history of one job. Appends come
// from the job's single worker; reads may happen concurrently from any
// number of callers. Eviction is FIFO by detection order and never affects
// the job's all-time counters.
type Ledger struct {
	mu      sync.RWMutex
	records []models.ChangeRecord
	cap     int
}

// NewLedger creates a ledger bounded to the given capacity. Non-positive
// capacities fall back to 1 so the ledger can always hold the latest record.
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ledger{
		records: make([]models.ChangeRecord, 0, capacity),
		cap:     capacity,
	}
}

// Append adds records in detection order, evicting the oldest entries when
// the capacity is exceeded.
func (l *Ledger) Append(records ...models.ChangeRecord) {
	if len(records) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, records...)
	if overflow := len(l.records) - l.cap; overflow > 0 {
		l.records = append(l.records[:0], l.records[overflow:]...)
	}
}

// Recent returns up to limit records, most recent first. A non-positive
// limit returns everything retained.
func (l *Ledger) Recent(limit int) []models.ChangeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.records)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]models.ChangeRecord, limit)
	for i := 0; i < limit; i++ {
		out[i] = l.records[n-1-i]
	}
	return out
}

// Snapshot returns a copy of all retained records, oldest first.
func (l *Ledger) Snapshot() []models.ChangeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.ChangeRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of retained records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Cap returns the configured maximum retained count.
func (l *Ledger) Cap() int {
	return l.cap
}
