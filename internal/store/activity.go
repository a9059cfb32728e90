package store

import "sync/atomic"

// Activity is the process-wide network activity indicator shared by all
// stores: incremented before every gateway call and decremented in a defer
// so it clears exactly once per started operation.
type Activity struct {
	inflight int64
}

func NewActivity() *Activity {
	return &Activity{}
}

func (a *Activity) Start() {
	atomic.AddInt64(&a.inflight, 1)
}

func (a *Activity) Done() {
	atomic.AddInt64(&a.inflight, -1)
}

// Busy reports whether any store operation is currently talking to the
// gateway. Drives the UI spinner.
func (a *Activity) Busy() bool {
	return atomic.LoadInt64(&a.inflight) > 0
}

func (a *Activity) InFlight() int64 {
	return atomic.LoadInt64(&a.inflight)
}
