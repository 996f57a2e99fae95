package outboundgroup

import (
	"context"
	"encoding/json"
	"net"

	"github.com/windrose-proxy/windrose/adapter/outbound"
	"github.com/windrose-proxy/windrose/common/singledo"
	"github.com/windrose-proxy/windrose/component/dialer"
	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/constant/provider"
)

type Relay struct {
	*outbound.Base
	single    *singledo.Single[[]C.Proxy]
	providers []provider.ProxyProvider
}

// proxyDialer makes the TCP dial of one hop go through the chain built so
// far, so every hop's handshake rides on the previous hop's stream.
type proxyDialer struct {
	proxy C.ProxyAdapter
}

func (d proxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	metadata := &C.Metadata{
		NetWork: C.TCP,
		Type:    C.INNER,
	}
	if err := metadata.SetRemoteAddress(address); err != nil {
		return nil, err
	}
	return d.proxy.DialContext(ctx, metadata)
}

// DialContext implements C.ProxyAdapter
func (r *Relay) DialContext(ctx context.Context, metadata *C.Metadata, opts ...dialer.Option) (C.Conn, error) {
	proxies := r.rawProxies(true)

	switch len(proxies) {
	case 0:
		return outbound.NewDirect().DialContext(ctx, metadata, r.Base.DialOptions(opts...)...)
	case 1:
		return proxies[0].DialContext(ctx, metadata, r.Base.DialOptions(opts...)...)
	}

	var chained C.ProxyAdapter = proxies[0]
	for _, proxy := range proxies[1 : len(proxies)-1] {
		chained = chainedAdapter{ProxyAdapter: proxy, dialer: proxyDialer{proxy: chained}}
	}

	last := proxies[len(proxies)-1]
	c, err := last.DialContext(ctx, metadata, append(r.Base.DialOptions(opts...), dialer.WithNetDialer(proxyDialer{proxy: chained}))...)
	if err != nil {
		return nil, err
	}
	c.AppendToChains(r)

	return c, nil
}

// chainedAdapter rebinds an adapter's own TCP dial to the chain below it.
type chainedAdapter struct {
	C.ProxyAdapter
	dialer proxyDialer
}

func (a chainedAdapter) DialContext(ctx context.Context, metadata *C.Metadata, opts ...dialer.Option) (C.Conn, error) {
	return a.ProxyAdapter.DialContext(ctx, metadata, append(opts, dialer.WithNetDialer(a.dialer))...)
}

// MarshalJSON implements C.ProxyAdapter
func (r *Relay) MarshalJSON() ([]byte, error) {
	all := []string{}
	for _, proxy := range r.rawProxies(false) {
		all = append(all, proxy.Name())
	}
	return json.Marshal(map[string]any{
		"type": r.Type().String(),
		"all":  all,
	})
}

func (r *Relay) rawProxies(touch bool) []C.Proxy {
	elm, _, _ := r.single.Do(func() ([]C.Proxy, error) {
		return getProvidersProxies(r.providers, touch, ""), nil
	})

	return elm
}

func NewRelay(option *GroupCommonOption, providers []provider.ProxyProvider) *Relay {
	return &Relay{
		Base: outbound.NewBase(outbound.BaseOption{
			Name:        option.Name,
			Type:        C.Relay,
			Interface:   option.Interface,
			RoutingMark: option.RoutingMark,
		}),
		single:    singledo.NewSingle[[]C.Proxy](defaultGetProxiesDuration),
		providers: providers,
	}
}
