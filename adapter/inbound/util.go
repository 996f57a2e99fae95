package inbound

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/transport/socks5"
)

func parseSocksAddr(target socks5.Addr) *C.Metadata {
	metadata := &C.Metadata{}

	switch target[0] {
	case socks5.AtypDomainName:
		// trim for FQDN
		metadata.Host = strings.TrimRight(string(target[2:2+target[1]]), ".")
		metadata.DstPort = uint16((int(target[2+target[1]]) << 8) | int(target[2+target[1]+1]))
	case socks5.AtypIPv4:
		metadata.DstIP = netip.AddrFrom4(*(*[4]byte)(target[1 : 1+net.IPv4len]))
		metadata.DstPort = uint16((int(target[1+net.IPv4len]) << 8) | int(target[1+net.IPv4len+1]))
	case socks5.AtypIPv6:
		ip6 := netip.AddrFrom16(*(*[16]byte)(target[1 : 1+net.IPv6len]))
		metadata.DstIP = ip6.Unmap()
		metadata.DstPort = uint16((int(target[1+net.IPv6len]) << 8) | int(target[1+net.IPv6len+1]))
	}

	return metadata
}

func parseHTTPAddr(request *http.Request) *C.Metadata {
	host := request.URL.Hostname()
	port := request.URL.Port()
	if port == "" {
		port = "80"
	}

	// trim FQDN (#737)
	host = strings.TrimRight(host, ".")

	uintPort, _ := strconv.ParseUint(port, 10, 16)

	metadata := &C.Metadata{
		NetWork: C.TCP,
		Host:    host,
		DstPort: uint16(uintPort),
	}

	if ip, err := netip.ParseAddr(host); err == nil {
		metadata.DstIP = ip
		metadata.Host = ""
	}

	return metadata
}

func parseAddr(addr string) (netip.Addr, uint16, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return netip.Addr{}, 0, err
	}

	ip, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, 0, err
	}

	uintPort, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return netip.Addr{}, 0, err
	}

	return ip.Unmap(), uint16(uintPort), nil
}
