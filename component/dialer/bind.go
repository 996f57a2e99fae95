package dialer

import (
	"net"
	"net/netip"
)

func lookupLocalAddr(ifaceName string, destination netip.Addr) (netip.Addr, error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return netip.Addr{}, err
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return netip.Addr{}, err
	}

	for _, addr := range addrs {
		prefix, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		ip, ok := netip.AddrFromSlice(prefix.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()

		if ip.Is4() == destination.Is4() && ip.Is6() == destination.Is6() {
			return ip, nil
		}
	}

	return netip.Addr{}, net.ErrClosed
}

func bindIfaceToDialer(ifaceName string, dialer *net.Dialer, network string, destination netip.Addr) error {
	if !destination.IsGlobalUnicast() {
		return nil
	}

	local, err := lookupLocalAddr(ifaceName, destination)
	if err != nil {
		return err
	}

	if network == "tcp" || network == "tcp4" || network == "tcp6" {
		dialer.LocalAddr = net.TCPAddrFromAddrPort(netip.AddrPortFrom(local, 0))
	} else {
		dialer.LocalAddr = net.UDPAddrFromAddrPort(netip.AddrPortFrom(local, 0))
	}

	return nil
}

func bindIfaceToListenConfig(ifaceName string, lc *net.ListenConfig) {
	addControlToListenConfig(lc, bindIfaceControl(ifaceName))
}
