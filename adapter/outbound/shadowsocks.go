package outbound

import (
	"context"
	"fmt"
	"net"
	"strconv"

	N "github.com/windrose-proxy/windrose/common/net"
	"github.com/windrose-proxy/windrose/component/dialer"
	"github.com/windrose-proxy/windrose/component/resolver"
	C "github.com/windrose-proxy/windrose/constant"

	shadowsocks "github.com/metacubex/sing-shadowsocks2"
	"github.com/sagernet/sing/common/bufio"
	M "github.com/sagernet/sing/common/metadata"
)

type ShadowSocks struct {
	*Base
	method shadowsocks.Method
	option *ShadowSocksOption
}

type ShadowSocksOption struct {
	BasicOption
	Name     string `proxy:"name"`
	Server   string `proxy:"server"`
	Port     int    `proxy:"port"`
	Password string `proxy:"password"`
	Cipher   string `proxy:"cipher"`
	UDP      bool   `proxy:"udp,omitempty"`
}

// DialContext implements C.ProxyAdapter
func (ss *ShadowSocks) DialContext(ctx context.Context, metadata *C.Metadata, opts ...dialer.Option) (_ C.Conn, err error) {
	c, err := dialer.DialContext(ctx, "tcp", ss.addr, ss.DialOptions(opts...)...)
	if err != nil {
		return nil, fmt.Errorf("%s connect error: %w", ss.addr, err)
	}
	N.TCPKeepAlive(c)

	defer func() {
		safeConnClose(c, err)
	}()

	destination := M.ParseSocksaddrHostPort(metadata.String(), metadata.DstPort)
	if N.NeedHandshake(c) {
		c = ss.method.DialEarlyConn(c, destination)
	} else {
		c, err = ss.method.DialConn(c, destination)
		if err != nil {
			return nil, err
		}
	}

	return NewConn(c, ss), nil
}

// ListenPacketContext implements C.ProxyAdapter
func (ss *ShadowSocks) ListenPacketContext(ctx context.Context, metadata *C.Metadata, opts ...dialer.Option) (C.PacketConn, error) {
	if !metadata.Resolved() {
		ip, err := resolver.ResolveIP(ctx, metadata.Host)
		if err != nil {
			return nil, err
		}
		metadata.DstIP = ip
	}

	addr, err := resolveUDPAddr(ctx, "udp", ss.addr)
	if err != nil {
		return nil, err
	}

	pc, err := dialer.ListenPacket(ctx, "udp", "", ss.DialOptions(opts...)...)
	if err != nil {
		return nil, err
	}

	packetConn := ss.method.DialPacketConn(bufio.NewBindPacketConn(pc, addr))
	return newPacketConn(packetConn, ss), nil
}

func NewShadowSocks(option ShadowSocksOption) (*ShadowSocks, error) {
	addr := net.JoinHostPort(option.Server, strconv.Itoa(option.Port))

	method, err := shadowsocks.CreateMethod(context.Background(), option.Cipher, shadowsocks.MethodOptions{
		Password: option.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("ss %s initialize error: %w", addr, err)
	}

	return &ShadowSocks{
		Base: &Base{
			name:  option.Name,
			addr:  addr,
			tp:    C.Shadowsocks,
			udp:   option.UDP,
			tfo:   option.TFO,
			iface: option.Interface,
			rmark: option.RoutingMark,
		},
		method: method,
		option: &option,
	}, nil
}
