package sing_tun

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/windrose-proxy/windrose/adapter/inbound"
	"github.com/windrose-proxy/windrose/component/dialer"
	"github.com/windrose-proxy/windrose/config"
	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/listener/sing"
	"github.com/windrose-proxy/windrose/log"

	tun "github.com/metacubex/sing-tun"
	"github.com/sagernet/sing/common"
	E "github.com/sagernet/sing/common/exceptions"
)

type Listener struct {
	closed  bool
	options config.Tun
	handler *ListenerHandler

	tunIf    tun.Tun
	tunStack tun.Stack

	networkUpdateMonitor    tun.NetworkUpdateMonitor
	defaultInterfaceMonitor tun.DefaultInterfaceMonitor
}

// dnsHijackAddrs collects the addresses whose port 53 traffic the TUN
// listener answers locally: every configured dns-hijack entry plus the
// gateway of each TUN prefix.
func dnsHijackAddrs(options config.Tun) ([]netip.AddrPort, error) {
	var dnsHijack []netip.AddrPort
	for _, d := range options.DNSHijack {
		if _, after, ok := strings.Cut(d, "://"); ok {
			d = after
		}
		d = strings.Replace(d, "any", "0.0.0.0", 1)
		addrPort, err := netip.ParseAddrPort(d)
		if err != nil {
			return nil, fmt.Errorf("parse dns-hijack url error: %w", err)
		}

		dnsHijack = append(dnsHijack, addrPort)
	}
	for _, a := range options.Inet4Address {
		dnsHijack = append(dnsHijack, netip.AddrPortFrom(a.Addr().Next(), 53))
	}
	for _, a := range options.Inet6Address {
		dnsHijack = append(dnsHijack, netip.AddrPortFrom(a.Addr().Next(), 53))
	}
	return dnsHijack, nil
}

func New(options config.Tun, tunnel C.Tunnel, additions ...inbound.Addition) (*Listener, error) {
	if len(additions) == 0 {
		additions = []inbound.Addition{
			inbound.WithInName("DEFAULT-TUN"),
		}
	}

	tunName := options.Device
	if tunName == "" {
		tunName = tun.CalculateInterfaceName("windrose-tun")
	}
	tunMTU := options.MTU
	if tunMTU == 0 {
		tunMTU = 9000
	}
	var udpTimeout int64
	if options.UDPTimeout != 0 {
		udpTimeout = options.UDPTimeout
	} else {
		udpTimeout = int64(C.DefaultUDPTimeout.Seconds())
	}

	dnsHijack, err := dnsHijackAddrs(options)
	if err != nil {
		return nil, err
	}

	handler := &ListenerHandler{
		ListenerHandler: sing.ListenerHandler{
			Tunnel:    tunnel,
			Type:      C.TUN,
			Additions: additions,
		},
		DnsAdds: dnsHijack,
	}
	l := &Listener{
		closed:  false,
		options: options,
		handler: handler,
	}

	networkUpdateMonitor, err := tun.NewNetworkUpdateMonitor(sing.Logger)
	if err != nil {
		return nil, E.Cause(err, "create NetworkUpdateMonitor")
	}
	err = networkUpdateMonitor.Start()
	if err != nil {
		return nil, E.Cause(err, "start NetworkUpdateMonitor")
	}
	l.networkUpdateMonitor = networkUpdateMonitor

	defaultInterfaceMonitor, err := tun.NewDefaultInterfaceMonitor(networkUpdateMonitor, sing.Logger, tun.DefaultInterfaceMonitorOptions{})
	if err != nil {
		_ = networkUpdateMonitor.Close()
		return nil, E.Cause(err, "create DefaultInterfaceMonitor")
	}
	if options.AutoDetectInterface {
		defaultInterfaceMonitor.RegisterCallback(func(event int) {
			autoDetectInterfaceName := defaultInterfaceMonitor.DefaultInterfaceName(netip.IPv4Unspecified())
			if autoDetectInterfaceName == "" || autoDetectInterfaceName == "<nil>" {
				log.Warnln("Auto detect interface name is empty.")
				return
			}
			if dialer.DefaultInterface.Load() != autoDetectInterfaceName {
				log.Infoln("Use interface name: %s", autoDetectInterfaceName)

				dialer.DefaultInterface.Store(autoDetectInterfaceName)
			}
		})
	}
	err = defaultInterfaceMonitor.Start()
	if err != nil {
		_ = networkUpdateMonitor.Close()
		return nil, E.Cause(err, "start DefaultInterfaceMonitor")
	}
	l.defaultInterfaceMonitor = defaultInterfaceMonitor

	tunOptions := tun.Options{
		Name:             tunName,
		MTU:              tunMTU,
		Inet4Address:     options.Inet4Address,
		Inet6Address:     options.Inet6Address,
		AutoRoute:        options.AutoRoute,
		StrictRoute:      options.StrictRoute,
		InterfaceMonitor: defaultInterfaceMonitor,
		IPRoute2TableIndex: 2022,
	}

	tunIf, err := tun.New(tunOptions)
	if err != nil {
		_ = networkUpdateMonitor.Close()
		_ = defaultInterfaceMonitor.Close()
		return nil, E.Cause(err, "configure tun interface")
	}
	l.tunIf = tunIf
	l.tunStack, err = tun.NewStack(strings.ToLower(options.Stack), tun.StackOptions{
		Context:                context.TODO(),
		Tun:                    tunIf,
		TunOptions:             tunOptions,
		EndpointIndependentNat: options.EndpointIndependentNat,
		UDPTimeout:             udpTimeout,
		Handler:                handler,
		Logger:                 sing.Logger,
	})
	if err != nil {
		_ = networkUpdateMonitor.Close()
		_ = defaultInterfaceMonitor.Close()
		return nil, err
	}
	err = l.tunStack.Start()
	if err != nil {
		_ = networkUpdateMonitor.Close()
		_ = defaultInterfaceMonitor.Close()
		_ = tunIf.Close()
		return nil, err
	}
	log.Infoln("TUN listener started at %s", tunOptions.Name)
	return l, nil
}

func (l *Listener) Close() {
	l.closed = true
	_ = common.Close(
		l.tunStack,
		l.tunIf,
		l.defaultInterfaceMonitor,
		l.networkUpdateMonitor,
	)
}

func (l *Listener) Config() config.Tun {
	return l.options
}
