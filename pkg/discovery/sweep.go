package discovery

import (
	"context"
	"encoding/binary"
	"net"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/etherlink/etherlink/pkg/netinfo"
)

const (
	// sweepProbeTimeout is the per-host TCP connect timeout during the
	// active subnet sweep.
	sweepProbeTimeout = 800 * time.Millisecond

	// sweepConcurrency bounds how many probes run in parallel, per spec:
	// "batches of at most 15 parallel probes".
	sweepConcurrency = 15
)

// sweepTargets enumerates every host address in (network+1, broadcast-1)
// for interfaces whose subnet is /24 or smaller (prefix length >= 24),
// excluding the given local addresses. Subnets larger than /24 are
// skipped entirely (spec: "Subnets larger than /24 are not swept").
func sweepTargets(addrs []netinfo.Addr, local map[string]bool) []string {
	var targets []string
	seen := make(map[string]bool)

	for _, a := range addrs {
		ip := net.ParseIP(a.IP).To4()
		mask := net.IPMask(net.ParseIP(a.Netmask).To4())
		if ip == nil || mask == nil {
			continue
		}
		ones, bits := mask.Size()
		if bits == 0 || ones < 24 {
			continue // larger than /24, not swept
		}

		network := binary.BigEndian.Uint32(ip) & binary.BigEndian.Uint32(mask)
		broadcast := network | ^binary.BigEndian.Uint32(mask)

		for h := network + 1; h < broadcast; h++ {
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], h)
			host := net.IP(b[:]).String()
			if local[host] || seen[host] {
				continue
			}
			seen[host] = true
			targets = append(targets, host)
		}
	}
	return targets
}

// probeAndAdd dials host:transferPort with a bounded timeout. A successful
// connect (no data exchanged, immediate close) means a peer is listening
// on the transfer port; it is reported via found.
func probeAndAdd(ctx context.Context, host string, transferPort int, found func(host string)) {
	d := net.Dialer{Timeout: sweepProbeTimeout}
	conn, err := d.DialContext(ctx, "tcp4", net.JoinHostPort(host, strconv.Itoa(transferPort)))
	if err != nil {
		return
	}
	_ = conn.Close()
	found(host)
}

// runSweep drives the batched probe of targets, stopping as soon as
// stopEarly reports true (the peer table became non-empty) or every
// target has been tried.
func runSweep(ctx context.Context, targets []string, transferPort int, stopEarly func() bool, found func(host string)) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	for _, host := range targets {
		host := host
		if stopEarly() {
			break
		}
		g.Go(func() error {
			if stopEarly() {
				return nil
			}
			probeAndAdd(gctx, host, transferPort, found)
			return nil
		})
	}
	_ = g.Wait()
}
