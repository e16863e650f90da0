// Package audit keeps the immutable round-record trail of a review session
// so the full debate history is replayable independent of the live ledger.
// Terminal sessions can be archived to SQLite.
package audit

import (
	"sync"
	"time"

	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/ledger"
)

// RoundRecord snapshots one phase transition: the critiques and responses
// created in that round and the evaluator's reading of them. Records are
// immutable once appended.
type RoundRecord struct {
	RoundNumber      int                `json:"round_number"`
	Phase            string             `json:"phase"`
	Timestamp        time.Time          `json:"timestamp"`
	Critiques        []*ledger.Critique `json:"critiques"`
	Responses        []*ledger.Response `json:"responses"`
	ResolutionRate   float64            `json:"resolution_rate"`
	ConsensusReached bool               `json:"consensus_reached"`
}

// Trail is the append-only record list for one session. Safe for concurrent
// use.
type Trail struct {
	mu        sync.RWMutex
	sessionID string
	records   []RoundRecord
}

// NewTrail creates an empty trail for the session.
func NewTrail(sessionID string) *Trail {
	return &Trail{sessionID: sessionID}
}

// SessionID returns the owning session.
func (t *Trail) SessionID() string {
	return t.sessionID
}

// Append adds a record, stamping the time if unset.
func (t *Trail) Append(rec RoundRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	t.records = append(t.records, rec)
}

// Records returns a copy of all records in append order.
func (t *Trail) Records() []RoundRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]RoundRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Len returns the number of records.
func (t *Trail) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}
