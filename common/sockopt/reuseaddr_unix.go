//go:build unix

package sockopt

import (
	"net"

	"golang.org/x/sys/unix"
)

func UDPReuseaddr(c *net.UDPConn) (err error) {
	rc, err := c.SyscallConn()
	if err != nil {
		return
	}

	err = rc.Control(func(fd uintptr) {
		err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})

	return
}
