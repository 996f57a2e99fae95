package provider

import (
	"errors"

	C "github.com/windrose-proxy/windrose/constant"
	types "github.com/windrose-proxy/windrose/constant/provider"
)

// ReservedName is the name of the provider holding the proxies declared
// inline in the configuration. User providers may not use it.
const ReservedName = "default"

// CompatibleProvider wraps the proxies declared inline in the configuration so
// that proxy groups can consume configured proxies and provider-backed sets
// through one interface.
type CompatibleProvider struct {
	name        string
	healthCheck *HealthCheck
	proxies     []C.Proxy
}

// Name implements types.Provider
func (cp *CompatibleProvider) Name() string {
	return cp.name
}

// Type implements types.Provider
func (cp *CompatibleProvider) Type() types.ProviderType {
	return types.Proxy
}

// Initial implements types.Provider
func (cp *CompatibleProvider) Initial() error {
	if cp.healthCheck.auto() {
		go cp.healthCheck.process()
	}
	return nil
}

// Update implements types.Provider
func (cp *CompatibleProvider) Update() error {
	return nil
}

// Proxies implements types.ProxyProvider
func (cp *CompatibleProvider) Proxies() []C.Proxy {
	return cp.proxies
}

// Touch implements types.ProxyProvider
func (cp *CompatibleProvider) Touch() {
	cp.healthCheck.touch()
}

// HealthCheck implements types.ProxyProvider
func (cp *CompatibleProvider) HealthCheck() {
	cp.healthCheck.check()
}

func (cp *CompatibleProvider) Close() error {
	cp.healthCheck.close()
	return nil
}

func NewCompatibleProvider(name string, proxies []C.Proxy, hc *HealthCheck) (*CompatibleProvider, error) {
	if len(proxies) == 0 {
		return nil, errors.New("provider need one proxy at least")
	}

	if hc.auto() {
		hc.setProxy(proxies)
	}

	return &CompatibleProvider{
		name:        name,
		proxies:     proxies,
		healthCheck: hc,
	}, nil
}
