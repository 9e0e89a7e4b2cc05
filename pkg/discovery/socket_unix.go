//go:build unix

package discovery

import (
	"context"
	"net"
	"strconv"
	"syscall"
)

// listenBroadcastUDP binds a UDP socket on the given port with
// SO_REUSEADDR (so a restarted process can rebind immediately) and
// SO_BROADCAST (required to send datagrams to broadcast addresses) set
// before bind, matching the teacher's raw-syscall approach to socket
// options (pkg/netinfo's route/netlink sockets) rather than pulling in a
// socket-options library.
func listenBroadcastUDP(port int) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				_ = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
				sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp4", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}
