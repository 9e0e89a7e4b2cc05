package transfer

import (
	"time"

	"golang.org/x/time/rate"
)

// progressInterval is the throttled cadence of §3: "Progress events are
// emitted at a throttled cadence (>= 500 ms apart per transfer, plus one at
// 0% and one at 100% / terminal)."
const progressInterval = 500 * time.Millisecond

// throttler wraps rate.Sometimes to cap intermediate progress callbacks to
// the cadence above; boundary events (0% and terminal) are emitted by the
// caller directly, bypassing the throttle.
type throttler struct {
	sometimes rate.Sometimes
}

func newThrottler() *throttler {
	return &throttler{sometimes: rate.Sometimes{Interval: progressInterval}}
}

func (t *throttler) maybe(fn func()) {
	t.sometimes.Do(fn)
}
