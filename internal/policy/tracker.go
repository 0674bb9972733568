package policy

import (
	"sync"
	"time"
)

// PayoutTracker accumulates per-operator payout totals for the current UTC
// day. Totals reset on day rollover.
type PayoutTracker struct {
	mu     sync.Mutex
	day    string
	totals map[string]int64
}

// NewPayoutTracker creates an empty tracker.
func NewPayoutTracker() *PayoutTracker {
	return &PayoutTracker{totals: make(map[string]int64)}
}

func (t *PayoutTracker) roll(now time.Time) {
	day := now.UTC().Format("2006-01-02")
	if day != t.day {
		t.day = day
		t.totals = make(map[string]int64)
	}
}

// Total returns the operator's running payout total for today.
func (t *PayoutTracker) Total(operatorID string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roll(time.Now())
	return t.totals[operatorID]
}

// Add records a committed payout against the operator's daily total.
func (t *PayoutTracker) Add(operatorID string, amount int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roll(time.Now())
	t.totals[operatorID] += amount
}
