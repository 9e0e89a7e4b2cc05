package transfer

import "sync"

// flowGate implements pause/resume as socket-level flow control (§4.5,
// §9 "Backpressure for pause/resume"): pausing simply stops the copy loop
// from issuing further Read/Write calls until resumed, rather than sending
// any protocol-level message.
type flowGate struct {
	mu       sync.Mutex
	paused   bool
	resumeCh chan struct{}
}

func newFlowGate() *flowGate {
	return &flowGate{resumeCh: make(chan struct{})}
}

// wait blocks while paused, and returns early if cancelled fires.
func (g *flowGate) wait(cancelled <-chan struct{}) {
	g.mu.Lock()
	ch := g.resumeCh
	paused := g.paused
	g.mu.Unlock()
	if !paused {
		return
	}
	select {
	case <-ch:
	case <-cancelled:
	}
}

func (g *flowGate) pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		return
	}
	g.paused = true
	g.resumeCh = make(chan struct{})
}

func (g *flowGate) resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		return
	}
	g.paused = false
	close(g.resumeCh)
}
