package daemon

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/etherlink/etherlink/pkg/discovery"
	"github.com/etherlink/etherlink/pkg/engine"
	"github.com/etherlink/etherlink/pkg/netinfo"
)

// Runtime provides the daemon server with access to the engine. This
// interface decouples the daemon package from the concrete *engine.Engine,
// mirroring the teacher's RuntimeInfo split between cmd/shurli and
// internal/daemon.
type Runtime interface {
	Start(ctx context.Context) error
	Stop()
	StartDiscovery(ctx context.Context) error
	StopDiscovery()
	Peers() []discovery.Peer
	CheckPeer(ctx context.Context, address string) bool
	SendBatch(ctx context.Context, batchID string, peerAddresses, filePaths []string) (string, error)
	CancelTransfer(id string) error
	PauseTransfer(id string) error
	ResumeTransfer(id string) error
	SetDownloadsDir(path string) error
	DownloadsDir() string
	Subscribe(kinds ...engine.EventKind) (<-chan engine.Event, func())
	Metrics() *engine.Metrics
	StartTime() time.Time
	Version() string
	LastInterfaces() *netinfo.Summary
}

// Server is the daemon's local HTTP+SSE API, bound to a loopback TCP port.
type Server struct {
	runtime    Runtime
	httpServer *http.Server
	listener   net.Listener
	addrPath   string
	cookiePath string
	authToken  string
	shutdownCh chan struct{}

	discoveryMu  sync.Mutex
	discoveryOn  bool
	discoveryCtx context.CancelFunc
}

// NewServer creates a daemon API server over runtime. addrPath and
// cookiePath are where the bound address and bearer token are recorded
// for CLI clients to discover.
func NewServer(runtime Runtime, addrPath, cookiePath string) *Server {
	return &Server{
		runtime:    runtime,
		addrPath:   addrPath,
		cookiePath: cookiePath,
		shutdownCh: make(chan struct{}),
	}
}

// ShutdownCh is closed when a shutdown is requested via POST /v1/shutdown.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start binds an ephemeral loopback TCP port, writes the cookie and
// address files, and begins serving in a background goroutine.
func (s *Server) Start() error {
	token, err := generateCookie()
	if err != nil {
		return fmt.Errorf("failed to generate auth cookie: %w", err)
	}
	s.authToken = token

	if err := s.checkStaleAddr(); err != nil {
		return err
	}

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener

	if err := os.WriteFile(s.cookiePath, []byte(token), 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	if err := os.WriteFile(s.addrPath, []byte(listener.Addr().String()), 0600); err != nil {
		listener.Close()
		os.Remove(s.cookiePath)
		return fmt.Errorf("failed to write addr file: %w", err)
	}
	slog.Info("daemon cookie written", "path", s.cookiePath)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Handler:      InstrumentHandler(s.authMiddleware(mux), s.runtime.Metrics()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams run indefinitely
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Error("daemon server error", "error", err)
		}
	}()

	slog.Info("daemon API listening", "addr", listener.Addr().String())
	return nil
}

// Stop gracefully shuts down the HTTP server and cleans up the address
// and cookie files. It does not stop the underlying engine.
func (s *Server) Stop() {
	slog.Info("daemon server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	s.httpServer.Shutdown(ctx)

	os.Remove(s.addrPath)
	os.Remove(s.cookiePath)
	slog.Info("daemon server stopped")
}

// checkStaleAddr checks if a daemon is already listening at the recorded
// address. If the address file exists but nothing answers, it is removed.
func (s *Server) checkStaleAddr() error {
	data, err := os.ReadFile(s.addrPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return nil
	}

	conn, err := net.DialTimeout("tcp4", string(data), 2*time.Second)
	if err != nil {
		slog.Info("removing stale daemon addr file", "path", s.addrPath)
		os.Remove(s.addrPath)
		os.Remove(s.cookiePath)
		return nil
	}
	conn.Close()
	return fmt.Errorf("%w: address %s is already in use", ErrDaemonAlreadyRunning, string(data))
}

// generateCookie creates a 32-byte random hex token.
func generateCookie() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// authMiddleware checks the Authorization: Bearer <token> header on every request.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		expected := "Bearer " + s.authToken

		if auth != expected {
			respondError(w, http.StatusUnauthorized, "unauthorized: invalid or missing auth token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
