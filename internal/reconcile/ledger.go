package reconcile

import "sync"

// Record is one failure entry in the ledger, keyed by device serial.
type Record struct {
	Serial      string
	Code        string
	Description string
}

// Ledger accumulates failure records during execution. Append-only for
// the run's lifetime and safe for concurrent appends; it is the sole
// source for end-of-run failure reporting.
type Ledger struct {
	mu      sync.Mutex
	records []Record
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append adds a record. Records are never removed during a run.
func (l *Ledger) Append(rec Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, rec)
}

// Len returns the number of records appended so far.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.records)
}

// Records returns a copy of the records in append order.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Record, len(l.records))
	copy(out, l.records)

	return out
}
