package socks

import (
	"net"

	"github.com/windrose-proxy/windrose/adapter/inbound"
	"github.com/windrose-proxy/windrose/common/sockopt"
	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/log"
	"github.com/windrose-proxy/windrose/transport/socks5"

	"github.com/sagernet/sing/common/buf"
)

type UDPListener struct {
	packetConn net.PacketConn
	addr       string
	closed     bool
}

// RawAddress implements C.Listener
func (l *UDPListener) RawAddress() string {
	return l.addr
}

// Address implements C.Listener
func (l *UDPListener) Address() string {
	return l.packetConn.LocalAddr().String()
}

// Close implements C.Listener
func (l *UDPListener) Close() error {
	l.closed = true
	return l.packetConn.Close()
}

func NewUDP(addr string, tunnel C.Tunnel, additions ...inbound.Addition) (*UDPListener, error) {
	if len(additions) == 0 {
		additions = []inbound.Addition{
			inbound.WithInName("DEFAULT-SOCKS"),
		}
	}

	l, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}

	if err := sockopt.UDPReuseaddr(l.(*net.UDPConn)); err != nil {
		log.Warnln("Failed to Reuse UDP Address: %s", err)
	}

	sl := &UDPListener{
		packetConn: l,
		addr:       addr,
	}
	go func() {
		for {
			buff := buf.NewPacket()
			n, remoteAddr, err := l.ReadFrom(buff.FreeBytes())
			if err != nil {
				buff.Release()
				if sl.closed {
					break
				}
				continue
			}
			buff.Truncate(n)
			handleSocksUDP(l, tunnel, buff, remoteAddr, additions...)
		}
	}()

	return sl, nil
}

func handleSocksUDP(pc net.PacketConn, tunnel C.Tunnel, buff *buf.Buffer, addr net.Addr, additions ...inbound.Addition) {
	target, payload, err := socks5.DecodeUDPPacket(buff.Bytes())
	if err != nil {
		// Unresolved UDP packet, drop it
		buff.Release()
		return
	}
	packet := &packet{
		pc:      pc,
		rAddr:   addr,
		payload: payload,
		buff:    buff,
	}
	pkt := inbound.NewPacket(target, packet, C.SOCKS5, additions...)
	tunnel.HandleUDPPacket(pkt, pkt.Metadata())
}
