package inbound

import (
	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/transport/socks5"
)

// NewPacket is PacketAdapter generator
func NewPacket(target socks5.Addr, packet C.UDPPacket, source C.Type, additions ...Addition) C.PacketAdapter {
	metadata := parseSocksAddr(target)
	metadata.NetWork = C.UDP
	metadata.Type = source
	ApplyAdditions(metadata, additions...)
	if ip, port, err := parseAddr(packet.LocalAddr().String()); err == nil {
		metadata.SrcIP = ip
		metadata.SrcPort = port
	}

	return C.NewPacketAdapter(packet, metadata)
}
