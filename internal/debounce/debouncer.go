// Package debounce turns a rapidly changing input value into a settled
// "committed" value. It holds no timers itself: callers schedule a wake-up
// after Interval carrying the Ticket returned by Input, and ask Commit
// whether that wake-up is still the current one.
package debounce

import (
	"sync"
	"time"
)

// DefaultInterval is the quiet period after the last keystroke before a
// query is committed.
const DefaultInterval = 300 * time.Millisecond

// Ticket identifies one scheduled commit attempt.
type Ticket uint64

// Debouncer tracks the latest raw value and which scheduled commit may fire.
type Debouncer struct {
	mu        sync.Mutex
	interval  time.Duration
	seq       Ticket
	raw       string
	committed string
	fired     bool
	closed    bool
}

// New creates a Debouncer. A non-positive interval falls back to DefaultInterval.
func New(interval time.Duration) *Debouncer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Debouncer{interval: interval}
}

// Interval is the quiet period callers must wait before calling Commit.
func (d *Debouncer) Interval() time.Duration { return d.interval }

// Input records value as the raw query and supersedes every earlier ticket.
func (d *Debouncer) Input(value string) Ticket {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	d.raw = value
	return d.seq
}

// Raw returns the most recent input, for echoing back to the user.
func (d *Debouncer) Raw() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.raw
}

// Committed returns the last committed value.
func (d *Debouncer) Committed() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.committed
}

// Commit reports the settled value for t. It returns false when a newer
// Input arrived after t, when the debouncer is closed, or when the value is
// unchanged since the previous commit.
func (d *Debouncer) Commit(t Ticket) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || t != d.seq {
		return "", false
	}
	if d.fired && d.raw == d.committed {
		return "", false
	}
	d.committed = d.raw
	d.fired = true
	return d.committed, true
}

// Close invalidates every outstanding ticket. No commit fires afterwards.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}
