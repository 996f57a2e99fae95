package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/windrose-proxy/windrose/component/resolver"

	"github.com/metacubex/tfo-go"
)

var ErrorInvalidedNetworkStack = errors.New("invalided network stack")

func DialContext(ctx context.Context, network, address string, options ...Option) (net.Conn, error) {
	opt := applyOptions(options...)

	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}

	if ip, err := netip.ParseAddr(host); err == nil {
		return dialContext(ctx, network, ip.Unmap(), port, opt)
	}

	switch network {
	case "tcp4", "udp4":
		ip, err := resolver.ResolveIPv4(ctx, host)
		if err != nil {
			return nil, err
		}
		return dialContext(ctx, network, ip, port, opt)
	case "tcp6", "udp6":
		ip, err := resolver.ResolveIPv6(ctx, host)
		if err != nil {
			return nil, err
		}
		return dialContext(ctx, network, ip, port, opt)
	case "tcp", "udp":
		return dualStackDialContext(ctx, network, host, port, opt)
	default:
		return nil, ErrorInvalidedNetworkStack
	}
}

func ListenPacket(ctx context.Context, network, address string, options ...Option) (net.PacketConn, error) {
	cfg := applyOptions(options...)

	lc := &net.ListenConfig{}
	if cfg.interfaceName != "" {
		bindIfaceToListenConfig(cfg.interfaceName, lc)
	}
	if cfg.addrReuse {
		addrReuseToListenConfig(lc)
	}
	if cfg.routingMark != 0 {
		bindMarkToListenConfig(cfg.routingMark, lc)
	}

	return lc.ListenPacket(ctx, network, address)
}

func applyOptions(options ...Option) *option {
	opt := &option{
		interfaceName: DefaultInterface.Load(),
		routingMark:   int(DefaultRoutingMark.Load()),
	}

	for _, o := range DefaultOptions {
		o(opt)
	}

	for _, o := range options {
		o(opt)
	}

	return opt
}

func dialContext(ctx context.Context, network string, destination netip.Addr, port string, opt *option) (net.Conn, error) {
	address := net.JoinHostPort(destination.String(), port)

	if opt.netDialer != nil {
		return opt.netDialer.DialContext(ctx, network, address)
	}

	netDialer := &net.Dialer{}
	if opt.interfaceName != "" {
		if err := bindIfaceToDialer(opt.interfaceName, netDialer, network, destination); err != nil {
			return nil, err
		}
	}
	if opt.routingMark != 0 {
		bindMarkToDialer(opt.routingMark, netDialer)
	}

	if opt.tfo && strings.HasPrefix(network, "tcp") {
		tfoDialer := tfo.Dialer{Dialer: *netDialer}
		return tfoDialer.DialContext(ctx, network, address, nil)
	}

	return netDialer.DialContext(ctx, network, address)
}

func dualStackDialContext(ctx context.Context, network, host, port string, opt *option) (net.Conn, error) {
	returned := make(chan struct{})
	defer close(returned)

	type dialResult struct {
		net.Conn
		error
		resolved bool
		ipv6     bool
		done     bool
	}
	results := make(chan dialResult)
	var primary, fallback dialResult

	startRacer := func(ctx context.Context, network, host string, ipv6 bool) {
		result := dialResult{ipv6: ipv6, done: true}
		defer func() {
			select {
			case results <- result:
			case <-returned:
				if result.Conn != nil {
					_ = result.Conn.Close()
				}
			}
		}()

		var ip netip.Addr
		if ipv6 {
			ip, result.error = resolver.ResolveIPv6(ctx, host)
		} else {
			ip, result.error = resolver.ResolveIPv4(ctx, host)
		}
		if result.error != nil {
			return
		}
		result.resolved = true

		result.Conn, result.error = dialContext(ctx, network, ip, port, opt)
	}

	go startRacer(ctx, network+"4", host, false)
	go startRacer(ctx, network+"6", host, true)

	for res := range results {
		if res.error == nil {
			return res.Conn, nil
		}

		if !res.ipv6 {
			primary = res
		} else {
			fallback = res
		}

		if primary.done && fallback.done {
			if primary.resolved {
				return nil, primary.error
			} else if fallback.resolved {
				return nil, fallback.error
			} else {
				return nil, fmt.Errorf("dns resolve failed: %w", primary.error)
			}
		}
	}

	return nil, errors.New("never touched")
}
