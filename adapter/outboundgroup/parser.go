package outboundgroup

import (
	"errors"
	"fmt"

	"github.com/windrose-proxy/windrose/adapter/outbound"
	"github.com/windrose-proxy/windrose/adapter/provider"
	"github.com/windrose-proxy/windrose/common/structure"
	C "github.com/windrose-proxy/windrose/constant"
	types "github.com/windrose-proxy/windrose/constant/provider"
)

var (
	errFormat          = errors.New("format error")
	errType            = errors.New("unsupported type")
	errMissProxy       = errors.New("`use` or `proxies` missing")
	errMissHealthCheck = errors.New("`url` or `interval` missing")
	errDuplicateName   = errors.New("duplicate provider name")
)

type GroupCommonOption struct {
	outbound.BasicOption
	Name       string   `group:"name"`
	Type       string   `group:"type"`
	Proxies    []string `group:"proxies,omitempty"`
	URL        string   `group:"url,omitempty"`
	Interval   int      `group:"interval,omitempty"`
	Lazy       bool     `group:"lazy,omitempty"`
	DisableUDP bool     `group:"disable-udp,omitempty"`
	Filter     string   `group:"filter,omitempty"`
}

func ParseProxyGroup(config map[string]any, proxies map[string]C.Proxy, providersMap map[string]types.ProxyProvider) (C.ProxyAdapter, error) {
	decoder := structure.NewDecoder(structure.Option{TagName: "group", WeaklyTypedInput: true})

	groupOption := &GroupCommonOption{
		Lazy: provider.HealthCheckLazyDefault(),
	}
	if err := decoder.Decode(config, groupOption); err != nil {
		return nil, errFormat
	}

	if groupOption.Type == "" || groupOption.Name == "" {
		return nil, errFormat
	}

	groupName := groupOption.Name

	if len(groupOption.Proxies) == 0 {
		return nil, fmt.Errorf("%s: %w", groupName, errMissProxy)
	}

	ps, err := getProxies(proxies, groupOption.Proxies)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", groupName, err)
	}

	if _, ok := providersMap[groupName]; ok {
		return nil, fmt.Errorf("%s: %w", groupName, errDuplicateName)
	}

	// select and relay don't need health check
	hcInterval := uint(0)
	if groupOption.Type == "url-test" || groupOption.Type == "fallback" || groupOption.Type == "load-balance" {
		if groupOption.URL == "" || groupOption.Interval == 0 {
			return nil, fmt.Errorf("%s: %w", groupName, errMissHealthCheck)
		}
		hcInterval = uint(groupOption.Interval)
	}

	hc := provider.NewHealthCheck(ps, groupOption.URL, hcInterval, groupOption.Lazy, groupName)
	pd, err := provider.NewCompatibleProvider(groupName, ps, hc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", groupName, err)
	}

	providersMap[groupName] = pd
	providers := []types.ProxyProvider{pd}

	var group C.ProxyAdapter
	switch groupOption.Type {
	case "url-test":
		opts := parseURLTestOption(config)
		group = NewURLTest(groupOption, providers, opts...)
	case "select":
		group = NewSelector(groupOption, providers)
	case "fallback":
		group = NewFallback(groupOption, providers)
	case "load-balance":
		strategy := parseStrategy(config)
		group, err = NewLoadBalance(groupOption, providers, strategy)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", groupName, err)
		}
	case "relay":
		group = NewRelay(groupOption, providers)
	default:
		return nil, fmt.Errorf("%w: %s", errType, groupOption.Type)
	}

	return group, nil
}

func getProxies(mapping map[string]C.Proxy, list []string) ([]C.Proxy, error) {
	var ps []C.Proxy
	for _, name := range list {
		p, ok := mapping[name]
		if !ok {
			return nil, fmt.Errorf("'%s' not found", name)
		}
		ps = append(ps, p)
	}
	return ps, nil
}
