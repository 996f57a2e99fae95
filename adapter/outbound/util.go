package outbound

import (
	"context"
	"net"

	"github.com/windrose-proxy/windrose/component/resolver"
	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/transport/socks5"
)

func safeConnClose(c net.Conn, err error) {
	if err != nil && c != nil {
		_ = c.Close()
	}
}

func serializesSocksAddr(metadata *C.Metadata) []byte {
	return socks5.ParseAddr(metadata.RemoteAddress())
}

func resolveUDPAddr(ctx context.Context, network, address string) (*net.UDPAddr, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}

	ip, err := resolver.ResolveIP(ctx, host)
	if err != nil {
		return nil, err
	}
	return net.ResolveUDPAddr(network, net.JoinHostPort(ip.String(), port))
}
