package transfer

import (
	"net"
	"sync"
)

// Handle is the registry's per-transfer bookkeeping: the underlying stream,
// a cancel closure, and the flow-control gate used for pause/resume (§4.5).
type Handle struct {
	ID        string
	Direction Direction
	PeerAddr  string
	Filename  string
	Total     int64

	conn      net.Conn
	gate      *flowGate
	cancelled chan struct{}
	once      sync.Once
	closeFn   func()

	mu     sync.Mutex
	status Status
}

func newHandle(id string, dir Direction, peerAddr, filename string, total int64, conn net.Conn, closeFn func()) *Handle {
	return &Handle{
		ID:        id,
		Direction: dir,
		PeerAddr:  peerAddr,
		Filename:  filename,
		Total:     total,
		conn:      conn,
		gate:      newFlowGate(),
		cancelled: make(chan struct{}),
		closeFn:   closeFn,
		status:    StatusConnecting,
	}
}

// cancel destroys the stream exactly once, regardless of how many times it
// is called (§4.5 "invokes the cancel closure, which must be idempotent").
func (h *Handle) cancel() {
	h.once.Do(func() {
		close(h.cancelled)
		if h.closeFn != nil {
			h.closeFn()
		}
	})
}

func (h *Handle) isCancelled() bool {
	select {
	case <-h.cancelled:
		return true
	default:
		return false
	}
}

func (h *Handle) setStatus(s Status) {
	h.mu.Lock()
	h.status = s
	h.mu.Unlock()
}

func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}
