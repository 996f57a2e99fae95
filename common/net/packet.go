package net

import (
	"net"
	"sync"
)

type threadSafePacketConn struct {
	net.PacketConn
	access sync.Mutex
}

func (c *threadSafePacketConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	c.access.Lock()
	defer c.access.Unlock()
	return c.PacketConn.WriteTo(b, addr)
}

// NewThreadSafePacketConn serializes WriteTo for stream-backed packet conns
// whose datagram framing must not interleave.
func NewThreadSafePacketConn(pc net.PacketConn) net.PacketConn {
	return &threadSafePacketConn{PacketConn: pc}
}

// CustomAddr wraps an address with the adapter name and connection id so
// upper layers can distinguish logical packet conns sharing one local addr.
type CustomAddr interface {
	net.Addr
	RawAddr() net.Addr
}

type customAddr struct {
	networkStr string
	addrStr    string
	rawAddr    net.Addr
}

func (a customAddr) Network() string {
	return a.networkStr
}

func (a customAddr) String() string {
	return a.addrStr
}

func (a customAddr) RawAddr() net.Addr {
	return a.rawAddr
}

func NewCustomAddr(networkStr string, addrStr string, rawAddr net.Addr) CustomAddr {
	return customAddr{
		networkStr: networkStr,
		addrStr:    addrStr,
		rawAddr:    rawAddr,
	}
}
