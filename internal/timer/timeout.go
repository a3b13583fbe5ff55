package timer

import (
	"sync"
	"time"
)

// Timeout is a single-owner, re-armable timer. Its callback runs while holding
// the owner's lock and never fires once the timeout has been re-armed or
// cancelled, even if the underlying time.Timer had already expired.
//
// All methods must be called with the owner's lock held.
type Timeout struct {
	mu       sync.Locker
	t        *time.Timer
	gen      uint64
	deadline time.Time
}

// New binds a timeout to the lock that guards its owner.
func New(mu sync.Locker) *Timeout {
	return &Timeout{mu: mu}
}

// Arm cancels any pending callback and schedules fn after d.
func (to *Timeout) Arm(d time.Duration, fn func()) {
	to.Cancel()
	gen := to.gen
	to.deadline = time.Now().Add(d)
	to.t = time.AfterFunc(d, func() {
		to.mu.Lock()
		defer to.mu.Unlock()
		// stale: re-armed or cancelled after this timer expired
		if to.gen != gen || to.t == nil {
			return
		}
		to.t = nil
		to.deadline = time.Time{}
		fn()
	})
}

// Cancel stops a pending callback. It reports whether one was pending.
func (to *Timeout) Cancel() bool {
	to.gen++
	to.deadline = time.Time{}
	if to.t == nil {
		return false
	}
	to.t.Stop()
	to.t = nil
	return true
}

// Pending reports whether a callback is scheduled.
func (to *Timeout) Pending() bool {
	return to.t != nil
}

// Deadline returns when the pending callback fires, or the zero time.
func (to *Timeout) Deadline() time.Time {
	return to.deadline
}
