//go:build !unix

package discovery

import (
	"net"
	"strconv"
)

// listenBroadcastUDP on non-unix platforms relies on the OS default socket
// options. Go's net package does not expose SO_BROADCAST/SO_REUSEADDR
// knobs portably outside syscall.RawConn, and Windows is not a supported
// deployment target for this engine.
func listenBroadcastUDP(port int) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp4", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp4", addr)
}
