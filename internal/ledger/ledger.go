// Package ledger keeps the in-memory visitor record store backing the
// real-time stats API. The ledger is process-local by design: a restart
// loses all history, and the durable snapshot store carries the counters
// that must survive.
package ledger

import (
	"sync"
	"time"

	"sitepulse/internal/visitors"
)

// Ledger is an append-only collection of visitor records pruned to a
// trailing retention window on every write. It is constructed once at
// startup and injected into handlers; all methods are safe for concurrent
// use.
type Ledger struct {
	mu        sync.Mutex
	retention time.Duration
	records   []visitors.VisitorRecord

	// Membership sets for distinct counts. These track lifetime
	// membership: the retention sweep drops records but not set entries.
	uniqueIPs      map[string]struct{}
	uniqueSessions map[string]struct{}

	now func() time.Time
}

// New creates an empty ledger with the given retention window in days.
func New(retentionDays int) *Ledger {
	return &Ledger{
		retention:      time.Duration(retentionDays) * 24 * time.Hour,
		uniqueIPs:      make(map[string]struct{}),
		uniqueSessions: make(map[string]struct{}),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Append stores a record, assigns its session state and prunes expired
// records. VisitCount is the number of prior records sharing the session id
// plus one; the O(n) scan is intentional and acceptable at this scale.
// The stored record is returned with VisitCount and IsFirstVisit populated.
func (l *Ledger) Append(rec visitors.VisitorRecord) visitors.VisitorRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	prior := 0
	for i := range l.records {
		if l.records[i].SessionID == rec.SessionID {
			prior++
		}
	}
	rec.VisitCount = prior + 1
	rec.IsFirstVisit = prior == 0

	l.uniqueIPs[rec.IP] = struct{}{}
	l.uniqueSessions[rec.SessionID] = struct{}{}
	l.records = append(l.records, rec)

	l.pruneLocked(l.now())
	return rec
}

// Sweep drops expired records outside the write path and reports how many
// were removed. The retention job calls this so long idle periods without
// writes still converge on the window.
func (l *Ledger) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := len(l.records)
	l.pruneLocked(l.now())
	return before - len(l.records)
}

func (l *Ledger) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.retention)

	kept := l.records[:0]
	for _, rec := range l.records {
		if !rec.Timestamp.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	l.records = kept
}

// Len returns the number of retained records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// UniqueIPCount returns the number of distinct IPs seen since startup.
func (l *Ledger) UniqueIPCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.uniqueIPs)
}

// SeenSession reports whether a session id was ever observed, including
// sessions whose records have since been pruned.
func (l *Ledger) SeenSession(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.uniqueSessions[sessionID]
	return ok
}

// UniqueSessionCount returns the number of distinct sessions seen since startup.
func (l *Ledger) UniqueSessionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.uniqueSessions)
}

// SetClock overrides the ledger's time source; intended for tests.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
