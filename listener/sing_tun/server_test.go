package sing_tun

import (
	"net/netip"
	"testing"

	"github.com/windrose-proxy/windrose/config"

	"github.com/stretchr/testify/assert"
)

func TestDnsHijackAddrs(t *testing.T) {
	addrs, err := dnsHijackAddrs(config.Tun{
		DNSHijack: []string{"any:53", "udp://1.1.1.1:53", "8.8.8.8:5353"},
		Inet4Address: []netip.Prefix{
			netip.MustParsePrefix("198.18.0.1/30"),
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, []netip.AddrPort{
		netip.MustParseAddrPort("0.0.0.0:53"),
		netip.MustParseAddrPort("1.1.1.1:53"),
		netip.MustParseAddrPort("8.8.8.8:5353"),
		netip.MustParseAddrPort("198.18.0.2:53"),
	}, addrs)
}

func TestDnsHijackAddrsInvalid(t *testing.T) {
	_, err := dnsHijackAddrs(config.Tun{
		DNSHijack: []string{"not-an-addr"},
	})
	assert.Error(t, err)
}
