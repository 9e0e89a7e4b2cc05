// Package netinfo implements C1, the Interface Monitor: it enumerates the
// host's local network interfaces, classifies them, and watches for
// changes so the discovery service can retarget its broadcasts.
package netinfo

import (
	"fmt"
	"net"
	"sort"
	"strings"
)

// LinkType classifies an interface by its likely physical medium.
type LinkType string

const (
	LinkWired    LinkType = "wired"
	LinkWireless LinkType = "wireless"
	LinkOther    LinkType = "other"
)

// Addr is one (IPv4 address, netmask, MAC) tuple on an interface.
type Addr struct {
	IP      string `json:"ip"`
	Netmask string `json:"netmask"`
	MAC     string `json:"mac,omitempty"`
}

// Interface describes one local network interface.
type Interface struct {
	Name      string   `json:"name"`
	Link      LinkType `json:"link"`
	Addrs     []Addr   `json:"addrs"`
	Connected bool     `json:"connected"`
}

// Summary is a snapshot of every interface with at least one IPv4 address,
// returned by Discover and diffed by Monitor on each poll.
type Summary struct {
	Interfaces []Interface `json:"interfaces"`
}

// Discover enumerates local network interfaces via the real net package.
func Discover() (*Summary, error) {
	return discoverFrom(net.Interfaces)
}

// discoverFrom is the testable core: it accepts a function matching
// net.Interfaces so tests can inject synthetic interface lists.
func discoverFrom(listFn func() ([]net.Interface, error)) (*Summary, error) {
	ifaces, err := listFn()
	if err != nil {
		return nil, fmt.Errorf("netinfo: enumerate interfaces: %w", err)
	}

	summary := &Summary{}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		info := Interface{
			Name: iface.Name,
			Link: classifyLink(iface.Name),
		}

		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue // IPv6 is not part of this protocol
			}
			if ip4.IsLoopback() {
				continue
			}

			info.Addrs = append(info.Addrs, Addr{
				IP:      ip4.String(),
				Netmask: net.IP(ipNet.Mask).String(),
				MAC:     iface.HardwareAddr.String(),
			})
		}

		if len(info.Addrs) > 0 {
			info.Connected = true
			summary.Interfaces = append(summary.Interfaces, info)
		}
	}

	sort.Slice(summary.Interfaces, func(i, j int) bool {
		return summary.Interfaces[i].Name < summary.Interfaces[j].Name
	})

	return summary, nil
}

// classifyLink guesses the physical medium from the interface name alone,
// per spec: "wi-fi"/"wlan"/"wireless" are wireless, "eth"/"ethernet" are
// wired, everything else is unclassified.
func classifyLink(name string) LinkType {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "wi-fi"), strings.Contains(lower, "wlan"), strings.Contains(lower, "wireless"):
		return LinkWireless
	case strings.Contains(lower, "eth"), strings.Contains(lower, "ethernet"):
		return LinkWired
	default:
		return LinkOther
	}
}

// NonInternalIPv4 returns every (interface, IPv4, netmask) tuple across all
// non-loopback interfaces in the summary. Used by discovery to pick
// broadcast targets and by the subnet sweep to pick probe ranges.
func (s *Summary) NonInternalIPv4() []Addr {
	var out []Addr
	for _, iface := range s.Interfaces {
		out = append(out, iface.Addrs...)
	}
	return out
}

// serialize produces a deterministic string encoding of a Summary suitable
// for change detection (see Monitor). Interfaces are already sorted by
// Discover, and each interface's addrs are walked in order.
func (s *Summary) serialize() string {
	var b strings.Builder
	for _, iface := range s.Interfaces {
		b.WriteString(iface.Name)
		b.WriteByte(':')
		b.WriteString(string(iface.Link))
		for _, a := range iface.Addrs {
			b.WriteByte('|')
			b.WriteString(a.IP)
			b.WriteByte('/')
			b.WriteString(a.Netmask)
		}
		b.WriteByte(';')
	}
	return b.String()
}
