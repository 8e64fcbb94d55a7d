package controller

import (
	"context"
	"time"
)

// ticker sleeps to absolute deadlines so per-tick jitter does not accumulate.
// When a tick overruns, the schedule restarts from now instead of bursting.
type ticker struct {
	period time.Duration
	next   time.Time
}

func newTicker(period time.Duration) *ticker {
	return &ticker{period: period, next: time.Now()}
}

// wait sleeps until the next deadline or until ctx is done. It returns how
// far behind schedule the caller was when the deadline had already passed.
func (t *ticker) wait(ctx context.Context) time.Duration {
	t.next = t.next.Add(t.period)
	d := time.Until(t.next)
	if d <= 0 {
		t.next = time.Now()
		return -d
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	return 0
}
