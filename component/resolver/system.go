package resolver

import (
	"context"
	"net"
	"net/netip"
)

func systemLookup(ctx context.Context, host, network string) ([]netip.Addr, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDNSTimeout)
	defer cancel()

	ipAddrs, err := net.DefaultResolver.LookupNetIP(ctx, network, host)
	if err != nil {
		return nil, err
	} else if len(ipAddrs) == 0 {
		return nil, ErrIPNotFound
	}

	addrs := make([]netip.Addr, 0, len(ipAddrs))
	for _, addr := range ipAddrs {
		addrs = append(addrs, addr.Unmap())
	}
	return addrs, nil
}
