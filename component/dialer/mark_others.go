//go:build !linux

package dialer

import (
	"context"
	"net"
	"sync"
	"syscall"

	"github.com/windrose-proxy/windrose/log"
)

var printMarkWarnOnce sync.Once

func printMarkWarn() {
	printMarkWarnOnce.Do(func() {
		log.Warnln("routing-mark is only supported on linux")
	})
}

func bindMarkToDialer(mark int, dialer *net.Dialer) {
	printMarkWarn()
}

func bindMarkToListenConfig(mark int, lc *net.ListenConfig) {
	printMarkWarn()
}

func bindIfaceControl(ifaceName string) controlFn {
	return func(ctx context.Context, network, address string, c syscall.RawConn) error {
		return nil
	}
}
