package transfer

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

const connectTimeout = 5 * time.Second

// Sender is C4: the outbound half of the transfer protocol.
type Sender struct {
	cfg      Config
	registry *Registry
	cb       Callbacks
}

// NewSender builds a Sender sharing the registry and callbacks with a Listener.
func NewSender(cfg Config, registry *Registry, cb Callbacks) *Sender {
	return &Sender{cfg: cfg, registry: registry, cb: cb}
}

// Send drives one (transferId, peerAddress, localFilePath) stream per §4.4.
// id is the caller-supplied or synthesized transfer id for this single
// stream (distinct from any enclosing batch id).
func (s *Sender) Send(ctx context.Context, id, peerAddr, localPath string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		s.cb.errorEvt(ErrorEvent{TransferID: id, Error: ErrSourceMissing.Error()})
		return ErrSourceMissing
	}
	filename := filepath.Base(localPath)
	total := info.Size()

	s.cb.progress(progressFor(id, StatusConnecting, filename, 0, total, 0))

	dialer := net.Dialer{Timeout: connectTimeout}
	target := peerAddr
	if _, _, splitErr := net.SplitHostPort(peerAddr); splitErr != nil {
		target = net.JoinHostPort(peerAddr, fmt.Sprint(s.cfg.port()))
	}
	conn, err := dialer.DialContext(ctx, "tcp4", target)
	if err != nil {
		s.cb.errorEvt(ErrorEvent{TransferID: id, Error: err.Error()})
		return err
	}
	defer conn.Close()

	h := newHandle(id, DirSend, peerAddr, filename, total, conn, func() { conn.Close() })
	if err := s.registry.register(h); err != nil {
		s.cb.errorEvt(ErrorEvent{TransferID: id, Error: err.Error()})
		return err
	}

	// A cancel arriving before the header is written must not produce a
	// parseable header on the peer (§4.4 "Why the flush matters").
	if h.isCancelled() {
		s.registry.remove(id)
		h.setStatus(StatusCancelled)
		s.cb.errorEvt(ErrorEvent{TransferID: id, Error: ErrCancelled.Error()})
		return ErrCancelled
	}

	if err := writeHeader(conn, metadata{TransferID: id, Name: filename, Size: total}); err != nil {
		s.registry.remove(id)
		h.setStatus(StatusFailed)
		s.cb.errorEvt(ErrorEvent{TransferID: id, Error: err.Error()})
		return err
	}
	// writeHeader returning means the header reached the kernel socket
	// buffer: the flush callback of §4.4. A cancel racing the flush is
	// still observed here before any payload byte is written.
	if h.isCancelled() {
		s.registry.remove(id)
		h.setStatus(StatusCancelled)
		s.cb.errorEvt(ErrorEvent{TransferID: id, Error: ErrCancelled.Error()})
		return ErrCancelled
	}

	h.setStatus(StatusSending)
	s.cb.progress(progressFor(id, StatusSending, filename, 0, total, 0))

	f, err := os.Open(localPath)
	if err != nil {
		s.registry.remove(id)
		h.setStatus(StatusFailed)
		s.cb.errorEvt(ErrorEvent{TransferID: id, Error: err.Error()})
		return err
	}
	defer f.Close()

	th := newThrottler()
	speed := newSpeedTracker()
	written, copyErr := copyWithFlow(conn, bufio.NewReader(f), h.gate, h.cancelled, func(n int64) {
		th.maybe(func() {
			s.cb.progress(progressFor(id, StatusSending, filename, n, total, speed.sample(n)))
		})
	})

	s.registry.remove(id)

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}

	switch {
	case copyErr != nil:
		if h.isCancelled() {
			h.setStatus(StatusCancelled)
			s.cb.errorEvt(ErrorEvent{TransferID: id, Error: ErrCancelled.Error()})
		} else {
			h.setStatus(StatusFailed)
			s.cb.errorEvt(ErrorEvent{TransferID: id, Error: copyErr.Error()})
		}
		return copyErr
	case written != total:
		h.setStatus(StatusFailed)
		s.cb.errorEvt(ErrorEvent{TransferID: id, Error: ErrSizeMismatch.Error()})
		return ErrSizeMismatch
	default:
		h.setStatus(StatusCompleted)
		s.cb.progress(progressFor(id, StatusSending, filename, written, total, 0))
		s.cb.complete(CompleteEvent{TransferID: id, Filename: filename})
		return nil
	}
}
