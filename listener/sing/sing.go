package sing

import (
	"context"
	"net"

	"github.com/windrose-proxy/windrose/adapter/inbound"
	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/log"

	"github.com/sagernet/sing/common/buf"
	E "github.com/sagernet/sing/common/exceptions"
	M "github.com/sagernet/sing/common/metadata"
	"github.com/sagernet/sing/common/network"
)

// ListenerHandler bridges sing's connection callbacks to the tunnel.
type ListenerHandler struct {
	Tunnel    C.Tunnel
	Type      C.Type
	Additions []inbound.Addition
}

// ConvertMetadata builds session metadata from a sing socksaddr pair.
func (h *ListenerHandler) ConvertMetadata(source M.Socksaddr, destination M.Socksaddr, network C.NetWork) *C.Metadata {
	metadata := &C.Metadata{
		NetWork: network,
		Type:    h.Type,
	}
	inbound.ApplyAdditions(metadata, h.Additions...)
	if source.IsIP() {
		metadata.SrcIP = source.Addr.Unmap()
	}
	metadata.SrcPort = source.Port
	if destination.IsFqdn() {
		metadata.Host = destination.Fqdn
	} else {
		metadata.DstIP = destination.Addr.Unmap()
	}
	metadata.DstPort = destination.Port
	return metadata
}

func (h *ListenerHandler) NewConnection(ctx context.Context, conn net.Conn, metadata M.Metadata) error {
	cMetadata := h.ConvertMetadata(metadata.Source, metadata.Destination, C.TCP)
	h.Tunnel.HandleTCPConn(conn, cMetadata) // blocking
	return nil
}

func (h *ListenerHandler) NewPacketConnection(ctx context.Context, conn network.PacketConn, metadata M.Metadata) error {
	defer func() { _ = conn.Close() }()
	for {
		buff := buf.NewPacket()
		dest, err := conn.ReadPacket(buff)
		if err != nil {
			buff.Release()
			if ShouldIgnorePacketError(err) {
				return nil
			}
			return err
		}
		cPacket := &packet{
			conn:  conn,
			rAddr: metadata.Source.UDPAddr(),
			buff:  buff,
		}
		cMetadata := h.ConvertMetadata(metadata.Source, dest, C.UDP)
		h.Tunnel.HandleUDPPacket(C.NewPacketAdapter(cPacket, cMetadata), cMetadata)
	}
}

func (h *ListenerHandler) NewError(ctx context.Context, err error) {
	log.Warnln("%s listener get error: %+v", h.Type.String(), err)
}

// ShouldIgnorePacketError reports whether a packet loop error is an
// expected shutdown signal rather than a real failure.
func ShouldIgnorePacketError(err error) bool {
	return E.IsTimeout(err) || E.IsClosed(err) || E.IsCanceled(err)
}

type packet struct {
	conn  network.PacketConn
	rAddr net.Addr
	buff  *buf.Buffer
}

func (c *packet) Data() []byte {
	return c.buff.Bytes()
}

// WriteBack copies the payload into a fresh buffer, WritePacket takes
// its ownership.
func (c *packet) WriteBack(b []byte, addr net.Addr) (n int, err error) {
	buff := buf.NewPacket()
	n, err = buff.Write(b)
	if err != nil {
		buff.Release()
		return
	}
	err = c.conn.WritePacket(buff, M.SocksaddrFromNet(addr).Unwrap())
	if err != nil {
		return 0, err
	}
	return
}

// LocalAddr returns the source IP/Port of UDP Packet
func (c *packet) LocalAddr() net.Addr {
	return c.rAddr
}

func (c *packet) Drop() {
	c.buff.Release()
}
