package constant

import (
	"encoding/json"
	"net"
	"net/netip"
	"strconv"
)

// Socks addr type
const (
	TCP NetWork = iota
	UDP
	ALLNet
	InvalidNet = 0xff
)

const (
	HTTP Type = iota
	HTTPS
	SOCKS4
	SOCKS5
	TUN
	INNER
	DNS
)

type NetWork int

func (n NetWork) String() string {
	switch n {
	case TCP:
		return "tcp"
	case UDP:
		return "udp"
	case ALLNet:
		return "all"
	default:
		return "invalid"
	}
}

func (n NetWork) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

type Type int

func (t Type) String() string {
	switch t {
	case HTTP:
		return "HTTP"
	case HTTPS:
		return "HTTPS"
	case SOCKS4:
		return "Socks4"
	case SOCKS5:
		return "Socks5"
	case TUN:
		return "TUN"
	case INNER:
		return "Inner"
	case DNS:
		return "DNS"
	default:
		return "Unknown"
	}
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Metadata is used to store connection address
type Metadata struct {
	NetWork NetWork    `json:"network"`
	Type    Type       `json:"type"`
	SrcIP   netip.Addr `json:"sourceIP"`
	DstIP   netip.Addr `json:"destinationIP"`
	SrcPort uint16     `json:"sourcePort,string"`
	DstPort uint16     `json:"destinationPort,string"`
	InIP    netip.Addr `json:"inboundIP"`
	InPort  uint16     `json:"inboundPort,string"`
	InName  string     `json:"inboundName"`
	Host    string     `json:"host"`
	DNSMode DNSMode    `json:"dnsMode"`
	Process string     `json:"process"`

	// SpecialProxy bypasses rule matching and routes through the named proxy
	SpecialProxy string `json:"specialProxy"`
}

func (m *Metadata) RemoteAddress() string {
	return net.JoinHostPort(m.String(), strconv.FormatUint(uint64(m.DstPort), 10))
}

func (m *Metadata) SourceAddress() string {
	if !m.SrcIP.IsValid() {
		return m.Type.String()
	}
	return net.JoinHostPort(m.SrcIP.String(), strconv.FormatUint(uint64(m.SrcPort), 10))
}

func (m *Metadata) SourceDetail() string {
	if m.Process != "" {
		return m.Process + "(" + m.SourceAddress() + ")"
	}
	return m.SourceAddress()
}

func (m *Metadata) SourceValid() bool {
	return m.SrcIP.IsValid() && m.SrcPort != 0
}

func (m *Metadata) Resolved() bool {
	return m.DstIP.IsValid()
}

// RuleHost returns the hostname rules match against. For fake-IP sessions the
// literal destination address is synthetic and the mapped domain wins.
func (m *Metadata) RuleHost() string {
	return m.Host
}

// Pure is used to solve unexpected behavior
// when dialing proxy connection in DNSMapping mode.
func (m *Metadata) Pure() *Metadata {
	if (m.DNSMode == DNSMapping || m.DNSMode == DNSHosts) && m.DstIP.IsValid() {
		copyM := *m
		copyM.Host = ""
		return &copyM
	}

	return m
}

func (m *Metadata) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(m.DstIP.Unmap(), m.DstPort)
}

func (m *Metadata) UDPAddr() *net.UDPAddr {
	if m.NetWork != UDP || !m.DstIP.IsValid() {
		return nil
	}
	return net.UDPAddrFromAddrPort(m.AddrPort())
}

func (m *Metadata) String() string {
	if m.Host != "" {
		return m.Host
	} else if m.DstIP.IsValid() {
		return m.DstIP.String()
	} else {
		return "<nil>"
	}
}

func (m *Metadata) Valid() bool {
	return m.Host != "" || m.DstIP.IsValid()
}

func (m *Metadata) SetRemoteAddress(rawAddress string) error {
	host, port, err := net.SplitHostPort(rawAddress)
	if err != nil {
		return err
	}

	uintPort, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return err
	}

	if ip, err := netip.ParseAddr(host); err != nil {
		m.Host = host
		m.DstIP = netip.Addr{}
	} else {
		m.Host = ""
		m.DstIP = ip.Unmap()
	}
	m.DstPort = uint16(uintPort)

	return nil
}

func (m *Metadata) SetRemoteAddr(addr net.Addr) error {
	if addr == nil {
		return nil
	}
	if addrPort, err := netip.ParseAddrPort(addr.String()); err == nil && addrPort.Addr().IsValid() {
		m.DstIP = addrPort.Addr().Unmap()
		m.DstPort = addrPort.Port()
		m.Host = ""
		return nil
	}
	return m.SetRemoteAddress(addr.String())
}
