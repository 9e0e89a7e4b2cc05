package discovery

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Peer is a remote host discovered on the local broadcast domain. The
// unique key is the IPv4 address.
type Peer struct {
	Address     string    `json:"address"`
	DisplayName string    `json:"displayName"`
	OS          string    `json:"os,omitempty"`
	LastSeen    time.Time `json:"lastSeen"`
}

// syntheticName is the display name used for peers found only through the
// TCP subnet-sweep probe, which carries no hostname information.
func syntheticName(address string) string {
	return fmt.Sprintf("Discovered Device (%s)", address)
}

// table is the peer table (§3): a single writer (the discovery service),
// safe for concurrent read via snapshot.
type table struct {
	mu    sync.RWMutex
	peers map[string]*Peer
}

func newTable() *table {
	return &table{peers: make(map[string]*Peer)}
}

// upsert records a presence sighting. It returns the stored peer and
// whether this is the first time the peer was seen this session — callers
// emit peer-discovered only on the new==true case, per §5 ("peer-discovered
// events are issued at most once per (peer, discovery-session)").
func (t *table) upsert(address, displayName, os string) (Peer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	existing, ok := t.peers[address]
	if !ok {
		p := &Peer{Address: address, DisplayName: displayName, OS: os, LastSeen: now}
		t.peers[address] = p
		return *p, true
	}

	existing.LastSeen = now
	if displayName != "" {
		existing.DisplayName = displayName
	}
	if os != "" {
		existing.OS = os
	}
	return *existing, false
}

// empty reports whether no peers have been seen yet this session.
func (t *table) empty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers) == 0
}

// clear empties the table, used on discovery (re)start.
func (t *table) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers = make(map[string]*Peer)
}

// snapshot returns a stable-ordered copy of all known peers.
func (t *table) snapshot() []Peer {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Peer, 0, len(t.peers))
	for _, p := range t.peers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}
