package inbound

import (
	"net"

	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/context"
	"github.com/windrose-proxy/windrose/transport/socks5"
)

// NewSocket receive TCP inbound and return ConnContext
func NewSocket(target socks5.Addr, conn net.Conn, source C.Type, additions ...Addition) *context.ConnContext {
	metadata := parseSocksAddr(target)
	metadata.NetWork = C.TCP
	metadata.Type = source
	ApplyAdditions(metadata, additions...)
	if remoteAddr := conn.RemoteAddr(); remoteAddr != nil {
		if ip, port, err := parseAddr(remoteAddr.String()); err == nil {
			metadata.SrcIP = ip
			metadata.SrcPort = port
		}
	}
	if localAddr := conn.LocalAddr(); localAddr != nil {
		if ip, port, err := parseAddr(localAddr.String()); err == nil {
			metadata.InIP = ip
			metadata.InPort = port
		}
	}

	return context.NewConnContext(conn, metadata)
}

// NewInner constructs metadata for connections originated by the process
// itself, such as provider fetches routed through the tunnel.
func NewInner(conn net.Conn, address string) *context.ConnContext {
	metadata := &C.Metadata{}
	metadata.NetWork = C.TCP
	metadata.Type = C.INNER
	metadata.DNSMode = C.DNSNormal
	metadata.Process = C.Name
	if err := metadata.SetRemoteAddress(address); err != nil {
		return nil
	}

	return context.NewConnContext(conn, metadata)
}
