//go:build unix

package dns

import (
	"net/netip"
	"os"
	"strings"
)

const resolvConf = "/etc/resolv.conf"

func dnsReadConfig() ([]string, error) {
	buf, err := os.ReadFile(resolvConf)
	if err != nil {
		return nil, err
	}

	nameservers := []string{}
	for _, line := range strings.Split(string(buf), "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 || fields[0] != "nameserver" {
			continue
		}
		if _, err := netip.ParseAddr(fields[1]); err == nil {
			nameservers = append(nameservers, fields[1])
		}
	}
	return nameservers, nil
}
