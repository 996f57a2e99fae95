package dns

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"github.com/windrose-proxy/windrose/component/dialer"
	"github.com/windrose-proxy/windrose/component/resolver"
	C "github.com/windrose-proxy/windrose/constant"

	"github.com/metacubex/randv2"
)

type dnsDialer struct {
	r            *Resolver
	proxyAdapter C.ProxyAdapter
	iface        string
}

func newDNSDialer(r *Resolver, proxyAdapter C.ProxyAdapter, iface string) *dnsDialer {
	return &dnsDialer{r: r, proxyAdapter: proxyAdapter, iface: iface}
}

func (d *dnsDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ip, err := netip.ParseAddr(host)
	if err != nil {
		if d.r == nil {
			return nil, fmt.Errorf("dns %s not a valid ip", host)
		}

		ips, err := resolver.LookupIPWithResolver(ctx, host, d.r)
		if err != nil {
			return nil, err
		} else if len(ips) == 0 {
			return nil, fmt.Errorf("%w: %s", resolver.ErrIPNotFound, host)
		}
		ip = ips[randv2.IntN(len(ips))]
	}

	if d.proxyAdapter != nil {
		uintPort, _ := strconv.ParseUint(port, 10, 16)
		metadata := &C.Metadata{
			NetWork: C.TCP,
			Type:    C.DNS,
			DstIP:   ip,
			DstPort: uint16(uintPort),
		}
		// upstream reached through the proxy, always over tcp
		return d.proxyAdapter.DialContext(ctx, metadata)
	}

	options := []dialer.Option{}
	if d.iface != "" {
		options = append(options, dialer.WithInterface(d.iface))
	}
	return dialer.DialContext(ctx, network, net.JoinHostPort(ip.String(), port), options...)
}
