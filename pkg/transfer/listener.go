package transfer

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const defaultTransferPort = 9001

// Config configures a Listener or Sender. Zero-value Port takes the
// documented default (9001); both ports are injectable so tests can bind
// ephemeral loopback sockets (Design Notes §9).
type Config struct {
	Port         int
	DownloadsDir func() string
}

func (c Config) port() int {
	if c.Port != 0 {
		return c.Port
	}
	return defaultTransferPort
}

// Listener is C3: the TCP transfer acceptor, bound for the engine's entire
// lifetime independent of discovery state (§3 invariant).
type Listener struct {
	cfg      Config
	registry *Registry
	cb       Callbacks

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// NewListener builds a Listener. cb may be zero-valued.
func NewListener(cfg Config, registry *Registry, cb Callbacks) *Listener {
	return &Listener{cfg: cfg, registry: registry, cb: cb}
}

// Start binds the TCP port and begins accepting in the background.
func (l *Listener) Start() error {
	ln, err := net.Listen("tcp4", fmt.Sprintf(":%d", l.cfg.port()))
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()

	l.wg.Add(1)
	go l.acceptLoop(ln)
	return nil
}

// Stop closes the listener and waits for in-flight connection handlers to
// return. Used by tests and graceful engine shutdown; production lifetime
// is "as long as the engine runs" per the invariant above.
func (l *Listener) Stop() {
	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
	l.wg.Wait()
}

// Addr returns the bound address, or nil before Start.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

func (l *Listener) acceptLoop(ln net.Listener) {
	defer l.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.handleConn(conn)
		}()
	}
}

// handleConn implements the receive side of §4.3: provisional id, metadata
// parse, race-free handover, throttled progress, terminal event.
func (l *Listener) handleConn(conn net.Conn) {
	defer conn.Close()

	provisionalID := uuid.NewString()
	h := newHandle(provisionalID, DirReceive, conn.RemoteAddr().String(), "", 0, conn, func() { conn.Close() })
	if err := l.registry.register(h); err != nil {
		slog.Error("transfer: provisional id collision", "id", provisionalID)
		return
	}

	reader := bufio.NewReaderSize(conn, 4096)
	meta, err := readHeader(reader)
	if err != nil {
		l.registry.remove(provisionalID)
		h.setStatus(StatusFailed)
		l.cb.errorEvt(ErrorEvent{TransferID: provisionalID, Error: err.Error()})
		return
	}

	id := provisionalID
	if meta.TransferID != "" && meta.TransferID != provisionalID {
		l.registry.remove(provisionalID)
		h.ID = meta.TransferID
		id = meta.TransferID
		if err := l.registry.register(h); err != nil {
			h.setStatus(StatusFailed)
			l.cb.errorEvt(ErrorEvent{TransferID: id, Error: err.Error()})
			return
		}
	}
	l.cb.progress(progressFor(id, StatusConnecting, "", 0, 0, 0))

	h.Filename = sanitizeBasename(meta.Name)
	h.Total = meta.Size
	h.setStatus(StatusReceiving)

	dir := l.cfg.DownloadsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.registry.remove(id)
		h.setStatus(StatusFailed)
		l.cb.errorEvt(ErrorEvent{TransferID: id, Error: err.Error()})
		return
	}
	destPath := filepath.Join(dir, h.Filename)
	f, err := os.Create(destPath)
	if err != nil {
		l.registry.remove(id)
		h.setStatus(StatusFailed)
		l.cb.errorEvt(ErrorEvent{TransferID: id, Error: err.Error()})
		return
	}
	defer f.Close()

	l.cb.progress(progressFor(id, StatusReceiving, h.Filename, 0, h.Total, 0))

	th := newThrottler()
	speed := newSpeedTracker()
	written, copyErr := copyWithFlow(f, io.LimitReader(reader, h.Total), h.gate, h.cancelled, func(n int64) {
		th.maybe(func() {
			l.cb.progress(progressFor(id, StatusReceiving, h.Filename, n, h.Total, speed.sample(n)))
		})
	})

	l.registry.remove(id)

	switch {
	case copyErr != nil:
		if h.isCancelled() {
			h.setStatus(StatusCancelled)
			l.cb.errorEvt(ErrorEvent{TransferID: id, Error: ErrCancelled.Error()})
		} else {
			h.setStatus(StatusFailed)
			l.cb.errorEvt(ErrorEvent{TransferID: id, Error: copyErr.Error()})
		}
	case written != h.Total:
		h.setStatus(StatusFailed)
		l.cb.errorEvt(ErrorEvent{TransferID: id, Error: ErrSizeMismatch.Error()})
	default:
		h.setStatus(StatusCompleted)
		l.cb.progress(progressFor(id, StatusReceiving, h.Filename, written, h.Total, 0))
		l.cb.complete(CompleteEvent{TransferID: id, Filename: h.Filename, Path: destPath})
	}
}
