package netinfo

import (
	"context"
	"log/slog"
	"time"
)

// PollInterval is the cadence at which Monitor re-discovers interfaces,
// per spec: 3 seconds.
const PollInterval = 3 * time.Second

// Change describes what differed between two interface snapshots.
type Change struct {
	Summary *Summary
}

// Monitor watches local network interfaces and calls onChange whenever the
// serialized interface set differs from the previous observation. Polling
// is the baseline (PollInterval); on platforms with kernel-level
// notifications (Linux netlink, Darwin route socket) an out-of-band signal
// triggers an immediate re-poll instead of waiting out the tick, so
// interface changes are reflected sooner without busy-polling.
type Monitor struct {
	onChange func(*Change)
	previous *Summary
	prevSer  string
}

// NewMonitor creates a Monitor. onChange is called synchronously from the
// Run goroutine on every observed change; callers that need non-blocking
// fan-out should buffer internally.
func NewMonitor(onChange func(*Change)) *Monitor {
	return &Monitor{onChange: onChange}
}

// Run blocks until ctx is cancelled. It takes an initial snapshot
// immediately, then re-checks on every poll tick and on every event from
// the platform change notifier.
func (m *Monitor) Run(ctx context.Context) {
	summary, err := Discover()
	if err != nil {
		slog.Warn("netinfo: initial discovery failed", "error", err)
		summary = &Summary{}
	}
	m.previous = summary
	m.prevSer = summary.serialize()
	if m.onChange != nil {
		m.onChange(&Change{Summary: summary})
	}

	eventCh := make(chan struct{}, 1)
	go watchNetworkChanges(ctx, eventCh)

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkForChanges()
		case <-eventCh:
			m.checkForChanges()
		}
	}
}

// checkForChanges re-discovers interfaces and diffs against the previous
// snapshot, invoking onChange only when the serialized form differs.
func (m *Monitor) checkForChanges() {
	current, err := Discover()
	if err != nil {
		slog.Warn("netinfo: discovery failed", "error", err)
		return
	}

	ser := current.serialize()
	if ser == m.prevSer {
		return
	}
	m.previous = current
	m.prevSer = ser

	slog.Info("netinfo: interface set changed", "interfaces", len(current.Interfaces))
	if m.onChange != nil {
		m.onChange(&Change{Summary: current})
	}
}
