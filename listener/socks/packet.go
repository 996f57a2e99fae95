package socks

import (
	"net"

	"github.com/windrose-proxy/windrose/transport/socks5"

	"github.com/sagernet/sing/common/buf"
)

type packet struct {
	pc      net.PacketConn
	rAddr   net.Addr
	payload []byte
	buff    *buf.Buffer
}

func (c *packet) Data() []byte {
	return c.payload
}

// WriteBack wraps the payload into a socks5 UDP datagram before sending it
// back to the client.
func (c *packet) WriteBack(b []byte, addr net.Addr) (n int, err error) {
	packet, err := socks5.EncodeUDPPacket(socks5.ParseAddrToSocksAddr(addr), b)
	if err != nil {
		return
	}
	return c.pc.WriteTo(packet, c.rAddr)
}

// LocalAddr returns the source IP/Port of UDP Packet
func (c *packet) LocalAddr() net.Addr {
	return c.rAddr
}

func (c *packet) Drop() {
	c.buff.Release()
}
