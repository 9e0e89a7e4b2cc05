// Package engine implements the Event/Command Façade of §2: it wires C1
// (pkg/netinfo), C2 (pkg/discovery) and C3/C4/C5 (pkg/transfer) together
// behind a single injectable handle and a typed event bus, per Design
// Notes §9 ("keep [the process-wide component] but injected as an explicit
// handle rather than a module-global so tests can instantiate per-test
// engines bound to loopback interfaces and ephemeral ports").
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/etherlink/etherlink/pkg/discovery"
	"github.com/etherlink/etherlink/pkg/netinfo"
	"github.com/etherlink/etherlink/pkg/transfer"
)

// interFileDelay is the pause between successive files sent to the same
// peer within a batch (§4.4): "sockets are not reused for multiple files."
const interFileDelay = 100 * time.Millisecond

// Config configures an Engine. Zero-value ports take the documented
// defaults (9000/9001); this makes ports injectable for tests (Design
// Notes §9).
type Config struct {
	DiscoveryPort int
	TransferPort  int
	Hostname      string
	OS            string
	DownloadsDir  string
	Version       string
}

// Engine is the process-wide façade. One Engine is created per process in
// production (cmd/etherlink) and per test in pkg/engine's own test suite.
type Engine struct {
	cfg     Config
	bus     *bus
	metrics *Metrics

	mon      *netinfo.Monitor
	disc     *discovery.Service
	listener *transfer.Listener
	sender   *transfer.Sender
	registry *transfer.Registry

	mu              sync.Mutex
	downloadsDir    string
	lastAddrs       []netinfo.Addr
	lastSummary     *netinfo.Summary
	monCancel       context.CancelFunc
	discCancel      context.CancelFunc
	discRunning     bool
	startedAt       time.Time
	transferDirs    map[string]string
	transferBytes   map[string]int64
}

// New constructs an Engine. It does not bind any socket; call Start for that.
func New(cfg Config) *Engine {
	if cfg.Hostname == "" {
		if h, err := os.Hostname(); err == nil {
			cfg.Hostname = h
		}
	}
	if cfg.OS == "" {
		cfg.OS = runtime.GOOS
	}
	if cfg.DownloadsDir == "" {
		cfg.DownloadsDir = defaultDownloadsDir()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	e := &Engine{
		cfg:           cfg,
		bus:           newBus(),
		metrics:       NewMetrics(cfg.Version, runtime.Version()),
		registry:      transfer.NewRegistry(),
		downloadsDir:  cfg.DownloadsDir,
		transferDirs:  make(map[string]string),
		transferBytes: make(map[string]int64),
	}

	e.mon = netinfo.NewMonitor(e.onInterfacesChanged)

	e.disc = discovery.New(discovery.Config{
		DiscoveryPort: cfg.DiscoveryPort,
		TransferPort:  cfg.TransferPort,
		Hostname:      cfg.Hostname,
		OS:            cfg.OS,
		LocalAddrs:    e.currentAddrs,
	}, discovery.Callbacks{
		OnPeerDiscovered: e.onPeerDiscovered,
		OnPeersCleared:   e.onPeersCleared,
		OnStatus:         e.onDiscoveryStatus,
	})

	transferCfg := transfer.Config{Port: cfg.TransferPort, DownloadsDir: e.DownloadsDir}
	transferCb := transfer.Callbacks{
		OnProgress: e.onTransferProgress,
		OnComplete: e.onTransferComplete,
		OnError:    e.onTransferError,
	}
	e.listener = transfer.NewListener(transferCfg, e.registry, transferCb)
	e.sender = transfer.NewSender(transferCfg, e.registry, transferCb)

	return e
}

func defaultDownloadsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "EtherLink")
	}
	return filepath.Join(home, "Downloads", "EtherLink")
}

// Metrics exposes the engine's Prometheus registry, for internal/daemon's
// /v1/metrics handler.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// StartTime reports when Start completed, the zero Time before that.
func (e *Engine) StartTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startedAt
}

// Version returns the configured build version.
func (e *Engine) Version() string { return e.cfg.Version }

// TransferAddr returns the address the transfer listener is bound to,
// suitable for passing as a peer address to another engine's SendBatch.
// Valid only after Start.
func (e *Engine) TransferAddr() string {
	return e.listener.Addr().String()
}

// Subscribe returns a channel of events matching kinds (or all events if
// kinds is empty) and an unsubscribe func that must be called exactly once.
func (e *Engine) Subscribe(kinds ...EventKind) (<-chan Event, func()) {
	return e.bus.subscribe(kinds...)
}

// Start binds the TCP transfer listener (bound for the engine's lifetime
// per §3's invariant, independent of discovery state) and begins interface
// polling. It does not start discovery; call StartDiscovery for that.
func (e *Engine) Start(ctx context.Context) error {
	if err := os.MkdirAll(e.DownloadsDir(), 0o755); err != nil {
		return fmt.Errorf("engine: create downloads dir: %w", err)
	}
	if err := e.listener.Start(); err != nil {
		return fmt.Errorf("engine: bind transfer listener: %w", err)
	}

	// Seed lastAddrs/lastSummary synchronously so discovery's broadcast
	// targeting and loopback suppression (§4.1 -> §4.2) are live the
	// instant Start returns, rather than racing mon.Run's first poll in
	// its own goroutine below.
	if summary, err := netinfo.Discover(); err == nil {
		e.onInterfacesChanged(&netinfo.Change{Summary: summary})
	} else {
		slog.Warn("engine: initial interface discovery failed", "error", err)
	}

	monCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.monCancel = cancel
	e.startedAt = time.Now()
	e.mu.Unlock()

	go e.mon.Run(monCtx)
	slog.Info("engine started", "downloads_dir", e.DownloadsDir())
	return nil
}

// Stop halts discovery (if running), interface polling, and the transfer
// listener, releasing every socket the engine owns.
func (e *Engine) Stop() {
	e.StopDiscovery()

	e.mu.Lock()
	cancel := e.monCancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	e.listener.Stop()
	slog.Info("engine stopped")
}

// StartDiscovery begins C2 (§6 startDiscovery): binds the UDP socket,
// clears the peer table, and arms the subnet-sweep fallback.
func (e *Engine) StartDiscovery(ctx context.Context) error {
	discCtx, cancel := context.WithCancel(ctx)
	if err := e.disc.Start(discCtx); err != nil {
		cancel()
		return err
	}
	e.mu.Lock()
	e.discCancel = cancel
	e.discRunning = true
	e.mu.Unlock()
	return nil
}

// StopDiscovery halts C2 (§6 stop): releases the UDP socket; the TCP
// listener is unaffected.
func (e *Engine) StopDiscovery() {
	e.mu.Lock()
	if !e.discRunning {
		e.mu.Unlock()
		return
	}
	e.discRunning = false
	cancel := e.discCancel
	e.mu.Unlock()

	e.disc.Stop()
	if cancel != nil {
		cancel()
	}
}

// Peers returns a snapshot of the discovery peer table.
func (e *Engine) Peers() []discovery.Peer { return e.disc.Peers() }

// CheckPeer synchronously probes address, using the transfer port when
// address carries no port of its own (§6 checkPeer).
func (e *Engine) CheckPeer(ctx context.Context, address string) bool {
	return e.disc.CheckPeer(ctx, address)
}

// SendBatch starts sending filePaths to every address in peerAddresses
// (§6 sendBatch, §4.4/§4.5 batching and exclusivity). batchID is used if
// non-empty, otherwise one is synthesized. Distinct peers are sent to in
// parallel; files to the same peer are sent serially with a settling pause
// between them. Each (peer, file) pair gets its own synthesized transfer id
// for progress/registry purposes - the batch id exists only to gate
// concurrency (see DESIGN.md's resolution of this Open Question).
func (e *Engine) SendBatch(ctx context.Context, batchID string, peerAddresses, filePaths []string) (string, error) {
	if batchID == "" {
		batchID = uuid.NewString()
	}
	if len(peerAddresses) == 0 || len(filePaths) == 0 {
		return "", fmt.Errorf("engine: sendBatch requires at least one peer and one file")
	}
	for _, p := range filePaths {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%w: %s", transfer.ErrSourceMissing, p)
		}
	}
	if !e.registry.TryBeginBatch() {
		return "", transfer.ErrBatchActive
	}

	go func() {
		defer e.registry.EndBatch()
		g, gctx := errgroup.WithContext(ctx)
		for _, peerAddr := range peerAddresses {
			peerAddr := peerAddr
			g.Go(func() error {
				for i, path := range filePaths {
					id := uuid.NewString()
					_ = e.sender.Send(gctx, id, peerAddr, path)
					if i != len(filePaths)-1 {
						select {
						case <-time.After(interFileDelay):
						case <-gctx.Done():
							return gctx.Err()
						}
					}
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	return batchID, nil
}

// CancelTransfer cancels a known transfer (§6 cancelTransfer); idempotent.
func (e *Engine) CancelTransfer(id string) error { return e.registry.Cancel(id) }

// PauseTransfer stops flow on a transfer's stream (§6 pauseTransfer).
func (e *Engine) PauseTransfer(id string) error { return e.registry.Pause(id) }

// ResumeTransfer continues flow on a paused transfer (§6 resumeTransfer).
func (e *Engine) ResumeTransfer(id string) error { return e.registry.Resume(id) }

// SetDownloadsDir updates the receive destination, creating it if absent
// (§6 setDownloadsDir).
func (e *Engine) SetDownloadsDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}
	e.mu.Lock()
	e.downloadsDir = path
	e.mu.Unlock()
	return nil
}

// DownloadsDir returns the current destination directory (§6 getDownloadsDir).
func (e *Engine) DownloadsDir() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.downloadsDir
}

// currentAddrs feeds discovery's broadcast targeting and loopback
// suppression (§4.1 -> §4.2 data flow).
func (e *Engine) currentAddrs() []netinfo.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAddrs
}

// LastInterfaces returns the most recently observed interface summary, or
// nil before the monitor's first poll.
func (e *Engine) LastInterfaces() *netinfo.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSummary
}

func (e *Engine) onInterfacesChanged(c *netinfo.Change) {
	e.mu.Lock()
	e.lastAddrs = c.Summary.NonInternalIPv4()
	e.lastSummary = c.Summary
	e.mu.Unlock()

	connected := 0
	for _, iface := range c.Summary.Interfaces {
		if iface.Connected {
			connected++
		}
	}
	e.metrics.InterfaceCount.WithLabelValues("true").Set(float64(connected))
	e.metrics.InterfaceCount.WithLabelValues("false").Set(float64(len(c.Summary.Interfaces) - connected))
	e.metrics.NetworkChangeTotal.Inc()

	e.bus.publish(Event{Kind: EventInterfacesChanged, Interfaces: c.Summary})
}

func (e *Engine) onPeerDiscovered(p discovery.Peer) {
	e.metrics.PeersDiscoveredTotal.Inc()
	e.metrics.PeersKnown.Set(float64(len(e.disc.Peers())))
	e.bus.publish(Event{Kind: EventPeerDiscovered, Peer: &p})
}

func (e *Engine) onPeersCleared() {
	e.metrics.PeersKnown.Set(0)
	e.bus.publish(Event{Kind: EventPeersCleared})
}

func (e *Engine) onDiscoveryStatus(s discovery.Status) {
	if s == discovery.StatusAdvancedScanning {
		e.metrics.DiscoverySweepsTotal.Inc()
	}
	for _, status := range discovery.AllStatuses {
		v := 0.0
		if status == s {
			v = 1.0
		}
		e.metrics.DiscoveryStatus.WithLabelValues(string(status)).Set(v)
	}
	e.bus.publish(Event{Kind: EventDiscoveryStatus, DiscoveryStatus: s})
}

func (e *Engine) onTransferProgress(p transfer.ProgressEvent) {
	if p.Status == transfer.StatusConnecting {
		// The receive side's connecting event carries Total 0 (the
		// listener emits it before recording the header's size); the
		// send side already stat'd the file, so Total is set for any
		// non-empty file. A cheap direction tag.
		direction := "receive"
		if p.Total > 0 {
			direction = "send"
		}
		e.metrics.TransfersStartedTotal.WithLabelValues(direction).Inc()
		e.metrics.ActiveTransfers.Inc()

		e.mu.Lock()
		e.transferDirs[p.TransferID] = direction
		e.mu.Unlock()
	}

	e.mu.Lock()
	prev := e.transferBytes[p.TransferID]
	direction := e.transferDirs[p.TransferID]
	e.transferBytes[p.TransferID] = p.Bytes
	e.mu.Unlock()

	if delta := p.Bytes - prev; delta > 0 {
		e.metrics.TransferBytesTotal.WithLabelValues(direction).Add(float64(delta))
	}

	e.bus.publish(Event{Kind: EventTransferProgress, Progress: &p})
}

// forgetTransfer drops the per-transfer bookkeeping onTransferProgress
// accumulates, called once a transfer reaches a terminal state. Some
// failures (e.g. a missing source file) fire straight to onTransferError
// without ever passing through the StatusConnecting progress event, so
// ActiveTransfers is only decremented for ids that were actually started.
func (e *Engine) forgetTransfer(id string) {
	e.mu.Lock()
	_, started := e.transferDirs[id]
	delete(e.transferDirs, id)
	delete(e.transferBytes, id)
	e.mu.Unlock()
	if started {
		e.metrics.ActiveTransfers.Dec()
	}
}

func (e *Engine) onTransferComplete(c transfer.CompleteEvent) {
	direction := "send"
	if c.Path != "" {
		direction = "receive"
	}
	e.metrics.TransfersCompletedTotal.WithLabelValues(direction).Inc()
	e.forgetTransfer(c.TransferID)
	e.bus.publish(Event{Kind: EventTransferComplete, Complete: &c})
}

func (e *Engine) onTransferError(err transfer.ErrorEvent) {
	e.mu.Lock()
	direction, ok := e.transferDirs[err.TransferID]
	e.mu.Unlock()
	if !ok {
		direction = "unknown"
	}
	e.metrics.TransfersFailedTotal.WithLabelValues(direction, err.Error).Inc()
	e.forgetTransfer(err.TransferID)
	e.bus.publish(Event{Kind: EventTransferError, TransferErr: &err})
}
