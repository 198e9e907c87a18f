// Package feedback records scored outcomes per pattern and aggregates them
// into rolling performance statistics the scoring loop reads.
package feedback

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded outcome. Entries are append-only; nothing in the
// SDK rewrites or deletes them.
type Entry struct {
	ID        string
	PatternID int
	Score     float64
	Comment   string
	Context   string // response text the feedback refers to
	CreatedAt time.Time
}

// Performance is the per-pattern aggregate: the running average score and
// a confidence that grows with evidence, saturating at 100 entries.
type Performance struct {
	Average    float64
	Confidence float64
}

// Ledger accumulates feedback entries. It is shared across conversations
// and safe for concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	entries map[int][]Entry
	sums    map[int]float64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[int][]Entry),
		sums:    make(map[int]float64),
	}
}

// Record appends a feedback entry. Scores outside [0, 1] are clamped, not
// rejected: feedback is inherently noisy and must never abort a turn.
func (l *Ledger) Record(patternID int, score float64, context, comment string) Entry {
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}

	entry := Entry{
		ID:        uuid.New().String(),
		PatternID: patternID,
		Score:     score,
		Comment:   comment,
		Context:   context,
		CreatedAt: time.Now(),
	}

	l.mu.Lock()
	l.entries[patternID] = append(l.entries[patternID], entry)
	l.sums[patternID] += score
	l.mu.Unlock()

	return entry
}

// Performance returns the aggregate for a pattern. Unseen identifiers get
// (0, 0): a neutral no-evidence value, never negative evidence.
func (l *Ledger) Performance(patternID int) Performance {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.entries[patternID])
	if n == 0 {
		return Performance{}
	}

	confidence := float64(n) / 100
	if confidence > 1 {
		confidence = 1
	}
	return Performance{
		Average:    l.sums[patternID] / float64(n),
		Confidence: confidence,
	}
}

// Entries returns a copy of the recorded entries for a pattern, in
// insertion order.
func (l *Ledger) Entries(patternID int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries[patternID]...)
}
