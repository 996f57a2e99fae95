package net

import (
	"context"
	"net"
	"time"

	"github.com/sagernet/sing/common/bufio"
)

// Relay copies between left and right bidirectionally, a close or error on
// either side tears down both directions.
func Relay(leftConn, rightConn net.Conn) {
	_ = bufio.CopyConn(context.TODO(), leftConn, rightConn)
}

var KeepAliveInterval = 15 * time.Second

func TCPKeepAlive(c net.Conn) {
	if tcp, ok := c.(*net.TCPConn); ok {
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(KeepAliveInterval)
	}
}
