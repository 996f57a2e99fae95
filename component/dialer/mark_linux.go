//go:build linux

package dialer

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

func bindMarkToDialer(mark int, dialer *net.Dialer) {
	addControlToDialer(dialer, bindMarkToControl(mark))
}

func bindMarkToListenConfig(mark int, lc *net.ListenConfig) {
	addControlToListenConfig(lc, bindMarkToControl(mark))
}

func bindMarkToControl(mark int) controlFn {
	return func(ctx context.Context, network, address string, c syscall.RawConn) (err error) {
		var innerErr error
		err = c.Control(func(fd uintptr) {
			innerErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_MARK, mark)
		})
		if innerErr != nil {
			err = innerErr
		}
		return
	}
}

func bindIfaceControl(ifaceName string) controlFn {
	return func(ctx context.Context, network, address string, c syscall.RawConn) (err error) {
		var innerErr error
		err = c.Control(func(fd uintptr) {
			innerErr = unix.BindToDevice(int(fd), ifaceName)
		})
		if innerErr != nil {
			err = innerErr
		}
		return
	}
}
