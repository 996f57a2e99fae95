package outbound

import (
	"context"

	"github.com/windrose-proxy/windrose/component/dialer"
	"github.com/windrose-proxy/windrose/component/resolver"
	C "github.com/windrose-proxy/windrose/constant"
)

type Direct struct {
	*Base
}

type DirectOption struct {
	BasicOption
	Name string `proxy:"name"`
}

// DialContext implements C.ProxyAdapter
func (d *Direct) DialContext(ctx context.Context, metadata *C.Metadata, opts ...dialer.Option) (C.Conn, error) {
	c, err := dialer.DialContext(ctx, "tcp", metadata.RemoteAddress(), d.DialOptions(opts...)...)
	if err != nil {
		return nil, err
	}
	return NewConn(c, d), nil
}

// ListenPacketContext implements C.ProxyAdapter
func (d *Direct) ListenPacketContext(ctx context.Context, metadata *C.Metadata, opts ...dialer.Option) (C.PacketConn, error) {
	// net.PacketConn from ListenPacket does not accept a domain in WriteTo,
	// resolve before the association is handed to the relay
	if !metadata.Resolved() {
		ip, err := resolver.ResolveIP(ctx, metadata.Host)
		if err != nil {
			return nil, err
		}
		metadata.DstIP = ip
	}

	pc, err := dialer.ListenPacket(ctx, "udp", "", d.DialOptions(opts...)...)
	if err != nil {
		return nil, err
	}
	return newPacketConn(pc, d), nil
}

func NewDirectWithOption(option DirectOption) *Direct {
	return &Direct{
		Base: &Base{
			name:  option.Name,
			tp:    C.Direct,
			udp:   true,
			tfo:   option.TFO,
			iface: option.Interface,
			rmark: option.RoutingMark,
		},
	}
}

func NewDirect() *Direct {
	return &Direct{
		Base: &Base{
			name: "DIRECT",
			tp:   C.Direct,
			udp:  true,
		},
	}
}

func NewCompatible() *Direct {
	return &Direct{
		Base: &Base{
			name: "COMPATIBLE",
			tp:   C.Compatible,
			udp:  true,
		},
	}
}
