package tunnel

import (
	"errors"
	"net"
	"net/netip"
	"time"

	N "github.com/windrose-proxy/windrose/common/net"
	C "github.com/windrose-proxy/windrose/constant"
)

func handleUDPToRemote(packet C.UDPPacket, pc C.PacketConn, metadata *C.Metadata) error {
	addr := metadata.UDPAddr()
	if addr == nil {
		return errors.New("udp addr invalid")
	}

	if _, err := pc.WriteTo(packet.Data(), addr); err != nil {
		return err
	}
	// reset timeout
	_ = pc.SetReadDeadline(time.Now().Add(udpTimeout))

	return nil
}

func handleUDPToLocal(writeBack C.WriteBack, pc C.PacketConn, key string, oAddrPort netip.AddrPort, fAddr netip.Addr) {
	defer func() {
		_ = pc.Close()
		natTable.Delete(key)
	}()

	buf := make([]byte, 65535)
	for {
		_ = pc.SetReadDeadline(time.Now().Add(udpTimeout))
		n, from, err := pc.ReadFrom(buf)
		if err != nil {
			return
		}

		fromUDPAddr, isUDPAddr := from.(*net.UDPAddr)
		if !isUDPAddr {
			continue
		}
		// make a copy so rewriting the reply source doesn't mutate the
		// address the outbound may reuse
		_fromUDPAddr := *fromUDPAddr
		fromUDPAddr = &_fromUDPAddr

		if fAddr.IsValid() {
			// restore the fake address the client sent to, so replies are
			// recognized by its socket
			fromAddr, ok := netip.AddrFromSlice(fromUDPAddr.IP)
			if ok && oAddrPort.Addr() == fromAddr.Unmap() {
				fromUDPAddr.IP = fAddr.AsSlice()
				if fAddr.Is4() {
					fromUDPAddr.Zone = ""
				}
			}
		}

		_, err = writeBack.WriteBack(buf[:n], fromUDPAddr)
		if err != nil {
			return
		}
	}
}

func handleSocket(conn net.Conn, outbound net.Conn) {
	N.Relay(conn, outbound)
}
