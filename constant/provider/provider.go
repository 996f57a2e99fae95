package provider

import (
	"github.com/windrose-proxy/windrose/constant"
)

// ProviderType defined
type ProviderType int

const (
	Proxy ProviderType = iota
	Rule
)

func (pt ProviderType) String() string {
	switch pt {
	case Proxy:
		return "Proxy"
	case Rule:
		return "Rule"
	default:
		return "Unknown"
	}
}

// Provider interface
type Provider interface {
	Name() string
	Type() ProviderType
	Initial() error
	Update() error
}

// ProxyProvider interface
type ProxyProvider interface {
	Provider
	Proxies() []constant.Proxy
	// Touch is used to inform the provider that the proxy is actually being used
	// while getting the list of proxies. Commonly used in DialContext and
	// DialPacketConn
	Touch()
	HealthCheck()
}
