package outboundgroup

import (
	"strings"
	"time"

	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/constant/provider"
	"github.com/windrose-proxy/windrose/tunnel"

	"github.com/dlclark/regexp2"
)

const (
	defaultGetProxiesDuration = time.Second * 5
)

func touchProviders(providers []provider.ProxyProvider) {
	for _, pd := range providers {
		pd.Touch()
	}
}

func getProvidersProxies(providers []provider.ProxyProvider, touch bool, filter string) []C.Proxy {
	proxies := []C.Proxy{}
	for _, pd := range providers {
		if touch {
			pd.Touch()
		}
		proxies = append(proxies, pd.Proxies()...)
	}

	if len(filter) > 0 {
		var filterRegs []*regexp2.Regexp
		for _, f := range strings.Split(filter, "`") {
			filterReg, err := regexp2.Compile(f, regexp2.None)
			if err != nil {
				continue
			}
			filterRegs = append(filterRegs, filterReg)
		}

		matchedProxies := []C.Proxy{}
		proxiesSet := map[string]struct{}{}
		for _, filterReg := range filterRegs {
			for _, p := range proxies {
				name := p.Name()
				if mat, _ := filterReg.MatchString(name); mat {
					if _, ok := proxiesSet[name]; !ok {
						proxiesSet[name] = struct{}{}
						matchedProxies = append(matchedProxies, p)
					}
				}
			}
		}
		// if no proxy matched, means bad filter, return all proxies
		if len(matchedProxies) > 0 {
			proxies = matchedProxies
		}
	}

	if len(proxies) == 0 {
		return append(proxies, tunnel.Proxies()["COMPATIBLE"])
	}
	return proxies
}
