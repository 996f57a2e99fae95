//go:build !unix

package dialer

import "net"

func addrReuseToListenConfig(lc *net.ListenConfig) {}
