package engine

import (
	"github.com/etherlink/etherlink/pkg/discovery"
	"github.com/etherlink/etherlink/pkg/netinfo"
	"github.com/etherlink/etherlink/pkg/transfer"
)

// EventKind tags the variant of Event, per Design Notes §9: "Re-architect
// as a single typed event bus consumed by the façade; collaborators
// subscribe by tag", replacing the source's duck-typed on(event, cb) maps.
type EventKind string

const (
	EventInterfacesChanged EventKind = "interfaces-changed"
	EventPeersCleared      EventKind = "peers-cleared"
	EventPeerDiscovered    EventKind = "peer-discovered"
	EventDiscoveryStatus   EventKind = "discovery-status"
	EventTransferProgress  EventKind = "transfer-progress"
	EventTransferComplete  EventKind = "transfer-complete"
	EventTransferError     EventKind = "transfer-error"
)

// Event is the tagged union delivered to subscribers. Only the field(s)
// matching Kind are populated.
type Event struct {
	Kind EventKind

	Interfaces      *netinfo.Summary
	Peer            *discovery.Peer
	DiscoveryStatus discovery.Status
	Progress        *transfer.ProgressEvent
	Complete        *transfer.CompleteEvent
	TransferErr     *transfer.ErrorEvent
}
