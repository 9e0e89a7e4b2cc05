package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxRequestBodySize limits the size of JSON request bodies to prevent
// unbounded memory consumption from oversized or malicious payloads.
const maxRequestBodySize = 1 << 20 // 1 MB

// registerRoutes sets up all HTTP routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/interfaces", s.handleInterfaces)
	mux.HandleFunc("GET /v1/peers", s.handlePeerList)
	mux.HandleFunc("POST /v1/peers/check", s.handleCheckPeer)

	mux.HandleFunc("POST /v1/discovery/start", s.handleDiscoveryStart)
	mux.HandleFunc("POST /v1/discovery/stop", s.handleDiscoveryStop)

	mux.HandleFunc("POST /v1/transfers", s.handleSendBatch)
	mux.HandleFunc("POST /v1/transfers/{id}/cancel", s.handleCancelTransfer)
	mux.HandleFunc("POST /v1/transfers/{id}/pause", s.handlePauseTransfer)
	mux.HandleFunc("POST /v1/transfers/{id}/resume", s.handleResumeTransfer)

	mux.HandleFunc("GET /v1/downloads-dir", s.handleGetDownloadsDir)
	mux.HandleFunc("POST /v1/downloads-dir", s.handleSetDownloadsDir)

	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.Handle("GET /v1/metrics", promhttp.HandlerFor(s.runtime.Metrics().Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /v1/shutdown", s.handleShutdown)
}

// --- Format helpers ---

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(DataResponse{Data: data})
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize)).Decode(v)
}

// --- Handlers ---

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.discoveryMu.Lock()
	on := s.discoveryOn
	s.discoveryMu.Unlock()

	resp := StatusResponse{
		Version:       s.runtime.Version(),
		UptimeSeconds: int(time.Since(s.runtime.StartTime()).Seconds()),
		DownloadsDir:  s.runtime.DownloadsDir(),
		DiscoveryOn:   on,
		KnownPeers:    len(s.runtime.Peers()),
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInterfaces(w http.ResponseWriter, r *http.Request) {
	summary := s.runtime.LastInterfaces()
	if summary == nil {
		respondJSON(w, http.StatusOK, []InterfaceInfo{})
		return
	}
	infos := make([]InterfaceInfo, 0, len(summary.Interfaces))
	for _, iface := range summary.Interfaces {
		addrs := make([]string, 0, len(iface.Addrs))
		for _, a := range iface.Addrs {
			addrs = append(addrs, a.IP)
		}
		infos = append(infos, InterfaceInfo{
			Name:      iface.Name,
			LinkType:  string(iface.Link),
			Connected: iface.Connected,
			Addresses: addrs,
		})
	}
	respondJSON(w, http.StatusOK, infos)
}

func (s *Server) handlePeerList(w http.ResponseWriter, r *http.Request) {
	peers := s.runtime.Peers()
	infos := make([]PeerInfo, 0, len(peers))
	for _, p := range peers {
		infos = append(infos, PeerInfo{
			Address:     p.Address,
			DisplayName: p.DisplayName,
			OS:          p.OS,
			LastSeenMs:  time.Since(p.LastSeen).Milliseconds(),
		})
	}
	respondJSON(w, http.StatusOK, infos)
}

func (s *Server) handleCheckPeer(w http.ResponseWriter, r *http.Request) {
	var req CheckPeerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Address == "" {
		respondError(w, http.StatusBadRequest, "address is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	alive := s.runtime.CheckPeer(ctx, req.Address)
	respondJSON(w, http.StatusOK, CheckPeerResponse{Address: req.Address, Alive: alive})
}

func (s *Server) handleDiscoveryStart(w http.ResponseWriter, r *http.Request) {
	s.discoveryMu.Lock()
	defer s.discoveryMu.Unlock()

	if s.discoveryOn {
		respondJSON(w, http.StatusOK, map[string]string{"status": "already-running"})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.runtime.StartDiscovery(ctx); err != nil {
		cancel()
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.discoveryCtx = cancel
	s.discoveryOn = true
	respondJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleDiscoveryStop(w http.ResponseWriter, r *http.Request) {
	s.discoveryMu.Lock()
	defer s.discoveryMu.Unlock()

	if !s.discoveryOn {
		respondJSON(w, http.StatusOK, map[string]string{"status": "already-stopped"})
		return
	}
	s.runtime.StopDiscovery()
	if s.discoveryCtx != nil {
		s.discoveryCtx()
	}
	s.discoveryOn = false
	respondJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleSendBatch(w http.ResponseWriter, r *http.Request) {
	var req SendBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.PeerAddresses) == 0 {
		respondError(w, http.StatusBadRequest, "peer_addresses is required")
		return
	}
	if len(req.FilePaths) == 0 {
		respondError(w, http.StatusBadRequest, "file_paths is required")
		return
	}

	batchID, err := s.runtime.SendBatch(r.Context(), req.BatchID, req.PeerAddresses, req.FilePaths)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, SendBatchResponse{BatchID: batchID})
}

func (s *Server) handleCancelTransfer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.runtime.CancelTransfer(id); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handlePauseTransfer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.runtime.PauseTransfer(id); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleResumeTransfer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.runtime.ResumeTransfer(id); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

func (s *Server) handleGetDownloadsDir(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, DownloadsDirResponse{Path: s.runtime.DownloadsDir()})
}

func (s *Server) handleSetDownloadsDir(w http.ResponseWriter, r *http.Request) {
	var req SetDownloadsDirRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	if err := s.runtime.SetDownloadsDir(req.Path); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, DownloadsDirResponse{Path: req.Path})
}

// handleEvents streams the engine's event bus as Server-Sent Events.
// Clients reconnect on disconnect; there is no replay of missed events
// (matching the bus's best-effort, non-blocking delivery).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, unsubscribe := s.runtime.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "shutting-down"})
	close(s.shutdownCh)
}
