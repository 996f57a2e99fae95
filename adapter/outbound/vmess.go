package outbound

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	N "github.com/windrose-proxy/windrose/common/net"
	"github.com/windrose-proxy/windrose/component/dialer"
	"github.com/windrose-proxy/windrose/component/resolver"
	C "github.com/windrose-proxy/windrose/constant"

	vmess "github.com/metacubex/sing-vmess"
	M "github.com/sagernet/sing/common/metadata"
)

type Vmess struct {
	*Base
	client    *vmess.Client
	option    *VmessOption
	tlsConfig *tls.Config
}

type VmessOption struct {
	BasicOption
	Name                string `proxy:"name"`
	Server              string `proxy:"server"`
	Port                int    `proxy:"port"`
	UUID                string `proxy:"uuid"`
	AlterID             int    `proxy:"alterId"`
	Cipher              string `proxy:"cipher"`
	UDP                 bool   `proxy:"udp,omitempty"`
	TLS                 bool   `proxy:"tls,omitempty"`
	SkipCertVerify      bool   `proxy:"skip-cert-verify,omitempty"`
	ServerName          string `proxy:"servername,omitempty"`
	AuthenticatedLength bool   `proxy:"authenticated-length,omitempty"`
}

// DialContext implements C.ProxyAdapter
func (v *Vmess) DialContext(ctx context.Context, metadata *C.Metadata, opts ...dialer.Option) (_ C.Conn, err error) {
	c, err := dialer.DialContext(ctx, "tcp", v.addr, v.DialOptions(opts...)...)
	if err != nil {
		return nil, fmt.Errorf("%s connect error: %w", v.addr, err)
	}
	N.TCPKeepAlive(c)

	defer func() {
		safeConnClose(c, err)
	}()

	c, err = v.streamConn(ctx, c, metadata)
	if err != nil {
		return nil, err
	}

	return NewConn(c, v), nil
}

func (v *Vmess) streamConn(ctx context.Context, c net.Conn, metadata *C.Metadata) (conn net.Conn, err error) {
	if v.tlsConfig != nil {
		cc := tls.Client(c, v.tlsConfig)
		ctx, cancel := context.WithTimeout(ctx, C.DefaultTCPTimeout)
		defer cancel()
		if err = cc.HandshakeContext(ctx); err != nil {
			return nil, fmt.Errorf("%s connect error: %w", v.addr, err)
		}
		c = cc
	}

	if metadata.NetWork == C.UDP {
		if N.NeedHandshake(c) {
			conn = v.client.DialEarlyPacketConn(c, M.SocksaddrFromNet(metadata.UDPAddr()))
		} else {
			conn, err = v.client.DialPacketConn(c, M.SocksaddrFromNet(metadata.UDPAddr()))
		}
	} else {
		if N.NeedHandshake(c) {
			conn = v.client.DialEarlyConn(c, M.ParseSocksaddrHostPort(metadata.String(), metadata.DstPort))
		} else {
			conn, err = v.client.DialConn(c, M.ParseSocksaddrHostPort(metadata.String(), metadata.DstPort))
		}
	}
	if err != nil {
		conn = nil
	}
	return
}

// ListenPacketContext implements C.ProxyAdapter
func (v *Vmess) ListenPacketContext(ctx context.Context, metadata *C.Metadata, opts ...dialer.Option) (_ C.PacketConn, err error) {
	// vmess use stream-oriented udp with a special address, so we need a net.UDPAddr
	if !metadata.Resolved() {
		ip, err := resolver.ResolveIP(ctx, metadata.Host)
		if err != nil {
			return nil, errors.New("can't resolve ip")
		}
		metadata.DstIP = ip
	}

	c, err := dialer.DialContext(ctx, "tcp", v.addr, v.DialOptions(opts...)...)
	if err != nil {
		return nil, fmt.Errorf("%s connect error: %w", v.addr, err)
	}
	N.TCPKeepAlive(c)

	defer func() {
		safeConnClose(c, err)
	}()

	c, err = v.streamConn(ctx, c, metadata)
	if err != nil {
		return nil, fmt.Errorf("new vmess client error: %w", err)
	}

	pc, ok := c.(net.PacketConn)
	if !ok {
		return nil, errors.New("vmess conn is not a packet conn")
	}
	return newPacketConn(N.NewThreadSafePacketConn(pc), v), nil
}

func NewVmess(option VmessOption) (*Vmess, error) {
	security := strings.ToLower(option.Cipher)

	var options []vmess.ClientOption
	if option.AuthenticatedLength {
		options = append(options, vmess.ClientWithAuthenticatedLength())
	}
	client, err := vmess.NewClient(option.UUID, security, option.AlterID, options...)
	if err != nil {
		return nil, err
	}

	var tlsConfig *tls.Config
	if option.TLS {
		sni := option.Server
		if option.ServerName != "" {
			sni = option.ServerName
		}
		tlsConfig = &tls.Config{
			ServerName:         sni,
			InsecureSkipVerify: option.SkipCertVerify,
		}
	}

	return &Vmess{
		Base: &Base{
			name:  option.Name,
			addr:  net.JoinHostPort(option.Server, strconv.Itoa(option.Port)),
			tp:    C.Vmess,
			udp:   option.UDP,
			tfo:   option.TFO,
			iface: option.Interface,
			rmark: option.RoutingMark,
		},
		client:    client,
		option:    &option,
		tlsConfig: tlsConfig,
	}, nil
}
