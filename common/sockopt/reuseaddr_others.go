//go:build !unix

package sockopt

import "net"

func UDPReuseaddr(c *net.UDPConn) error {
	return nil
}
