// Package discovery implements C2: the UDP presence broadcaster/listener
// and the active subnet-sweep fallback, and maintains the peer table.
package discovery

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/etherlink/etherlink/pkg/netinfo"
)

// Status is the discovery-status event value (§6).
type Status string

const (
	StatusIdle             Status = "idle"
	StatusAdvancedScanning Status = "advanced-scanning"
)

// AllStatuses enumerates every possible Status value, for callers (like
// metrics export) that need to reset a per-status collector.
var AllStatuses = []Status{StatusIdle, StatusAdvancedScanning}

const (
	defaultDiscoveryPort     = 9000
	defaultTransferPort      = 9001
	broadcastInterval        = 1000 * time.Millisecond
	sweepArmDelay            = 5 * time.Second
	globalBroadcastAddr      = "255.255.255.255"
)

// frame is the wire format of a presence datagram (§6).
type frame struct {
	Type string `json:"type"`
	Name string `json:"name"`
	OS   string `json:"os"`
}

// Callbacks receives discovery events. Any nil field is treated as a no-op.
type Callbacks struct {
	OnPeerDiscovered func(Peer)
	OnPeersCleared   func()
	OnStatus         func(Status)
}

func (c Callbacks) peerDiscovered(p Peer) {
	if c.OnPeerDiscovered != nil {
		c.OnPeerDiscovered(p)
	}
}
func (c Callbacks) peersCleared() {
	if c.OnPeersCleared != nil {
		c.OnPeersCleared()
	}
}
func (c Callbacks) status(s Status) {
	if c.OnStatus != nil {
		c.OnStatus(s)
	}
}

// Config configures a Service. Zero-value fields take the documented
// default; ports are injectable so tests can bind ephemeral loopback
// sockets (Design Notes §9).
type Config struct {
	DiscoveryPort int
	TransferPort  int
	Hostname      string
	OS            string

	// LocalAddrs returns the current set of non-internal IPv4 (addr,
	// netmask) tuples. The discovery service uses it both to pick
	// broadcast targets and to suppress self-originated datagrams.
	LocalAddrs func() []netinfo.Addr
}

func (c Config) discoveryPort() int {
	if c.DiscoveryPort != 0 {
		return c.DiscoveryPort
	}
	return defaultDiscoveryPort
}
func (c Config) transferPort() int {
	if c.TransferPort != 0 {
		return c.TransferPort
	}
	return defaultTransferPort
}
func (c Config) hostname() string {
	if c.Hostname != "" {
		return c.Hostname
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown-host"
}
func (c Config) osName() string {
	if c.OS != "" {
		return c.OS
	}
	return runtime.GOOS
}

// Service is C2: the discovery state machine (Idle/Broadcasting/Sweeping).
type Service struct {
	cfg Config
	cb  Callbacks

	table *table

	mu     sync.Mutex
	conn   *net.UDPConn
	cancel context.CancelFunc
	wg     sync.WaitGroup
	running bool
}

// New creates a discovery Service. Callbacks may be zero-valued.
func New(cfg Config, cb Callbacks) *Service {
	return &Service{cfg: cfg, cb: cb, table: newTable()}
}

// Peers returns a snapshot of the peer table.
func (s *Service) Peers() []Peer { return s.table.snapshot() }

// Start binds the UDP socket and begins broadcasting/listening. It clears
// the peer table first (publishing peers-cleared) so that a restart
// re-announces every still-reachable peer, per spec's restart semantics.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}

	conn, err := listenBroadcastUDP(s.cfg.discoveryPort())
	if err != nil {
		s.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.conn = conn
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.table.clear()
	s.cb.peersCleared()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.broadcastLoop(runCtx, conn)
	}()
	go func() {
		defer s.wg.Done()
		s.listenLoop(runCtx, conn)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.armSweep(runCtx)
	}()

	return nil
}

// Stop halts broadcasting/listening and releases the UDP socket. The TCP
// transfer listener, owned elsewhere, is unaffected.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	conn := s.conn
	s.mu.Unlock()

	cancel()
	if conn != nil {
		_ = conn.Close()
	}
	s.wg.Wait()
}

// CheckPeer synchronously probes address, per the checkPeer command (§6).
// A bare host is probed on the transfer port; a host:port address is
// probed on its own port.
func (s *Service) CheckPeer(ctx context.Context, address string) bool {
	host, port := address, s.cfg.transferPort()
	if h, p, err := net.SplitHostPort(address); err == nil {
		if n, err := net.LookupPort("tcp", p); err == nil {
			host, port = h, n
		}
	}
	found := false
	probeAndAdd(ctx, host, port, func(string) { found = true })
	return found
}

// broadcastLoop emits a presence frame every broadcastInterval to three
// destinations per non-internal interface: the global broadcast, the
// interface's directed broadcast, and the naive x.y.z.255 form.
func (s *Service) broadcastLoop(ctx context.Context, conn *net.UDPConn) {
	payload, _ := json.Marshal(frame{Type: "discovery", Name: s.cfg.hostname(), OS: s.cfg.osName()})

	ticker := time.NewTicker(broadcastInterval)
	defer ticker.Stop()

	send := func() {
		addrs := s.localAddrs()
		destPort := s.cfg.discoveryPort()
		seen := make(map[string]bool)
		emit := func(ip string) {
			if ip == "" || seen[ip] {
				return
			}
			seen[ip] = true
			dst := &net.UDPAddr{IP: net.ParseIP(ip), Port: destPort}
			_, _ = conn.WriteToUDP(payload, dst)
		}

		emit(globalBroadcastAddr)
		for _, a := range addrs {
			emit(directedBroadcast(a.IP, a.Netmask))
			emit(naiveBroadcast(a.IP))
		}
	}

	send()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			send()
		}
	}
}

// listenLoop reads incoming datagrams, drops any whose source matches a
// local IPv4 address (loopback suppression), and otherwise parses them as
// presence frames.
func (s *Service) listenLoop(ctx context.Context, conn *net.UDPConn) {
	buf := make([]byte, 2048)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue // read timeout or transient error; loop and recheck ctx
		}

		if s.isLocalAddr(src.IP.String()) {
			continue // loopback suppression
		}

		var f frame
		if err := json.Unmarshal(buf[:n], &f); err != nil {
			continue // malformed payload: swallowed silently, untrusted input
		}
		if f.Type != "discovery" {
			continue // unknown type: ignored
		}

		peer, isNew := s.table.upsert(src.IP.String(), f.Name, f.OS)
		if isNew {
			s.cb.peerDiscovered(peer)
		}
	}
}

// armSweep waits sweepArmDelay after start; if the peer table is still
// empty, it launches the active subnet-sweep fallback.
func (s *Service) armSweep(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(sweepArmDelay):
	}

	if !s.table.empty() {
		return
	}

	addrs := s.localAddrs()
	local := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		local[a.IP] = true
	}
	targets := sweepTargets(addrs, local)
	if len(targets) == 0 {
		return
	}

	s.cb.status(StatusAdvancedScanning)
	defer s.cb.status(StatusIdle)

	runSweep(ctx, targets, s.cfg.transferPort(), s.table.empty, func(host string) {
		peer, isNew := s.table.upsert(host, syntheticName(host), "")
		if isNew {
			s.cb.peerDiscovered(peer)
		}
	})
}

func (s *Service) localAddrs() []netinfo.Addr {
	if s.cfg.LocalAddrs == nil {
		return nil
	}
	return s.cfg.LocalAddrs()
}

func (s *Service) isLocalAddr(ip string) bool {
	for _, a := range s.localAddrs() {
		if a.IP == ip {
			return true
		}
	}
	return false
}

// directedBroadcast computes (ip AND mask) OR (NOT mask).
func directedBroadcast(ip, mask string) string {
	ip4 := net.ParseIP(ip).To4()
	mask4 := net.IPMask(net.ParseIP(mask).To4())
	if ip4 == nil || mask4 == nil {
		return ""
	}
	out := make(net.IP, 4)
	for i := range out {
		out[i] = (ip4[i] & mask4[i]) | (^mask4[i])
	}
	return out.String()
}

// naiveBroadcast replaces the last octet of ip with 255.
func naiveBroadcast(ip string) string {
	ip4 := net.ParseIP(ip).To4()
	if ip4 == nil {
		return ""
	}
	out := net.IP{ip4[0], ip4[1], ip4[2], 255}
	return out.String()
}
