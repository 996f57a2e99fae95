package dns

import (
	"net"
)

// loadSystemResolver builds plain UDP clients for every nameserver the
// host resolver configuration lists.
func loadSystemResolver() ([]dnsClient, error) {
	nameservers, err := dnsReadConfig()
	if err != nil {
		return nil, err
	}

	servers := make([]NameServer, 0, len(nameservers))
	for _, addr := range nameservers {
		servers = append(servers, NameServer{
			Addr: net.JoinHostPort(addr, "53"),
			Net:  "udp",
		})
	}
	return transform(servers, nil), nil
}
