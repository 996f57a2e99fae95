package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/windrose-proxy/windrose/adapter/inbound"
	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/transport/socks5"
)

func newClient(source net.Conn, tunnel C.Tunnel, additions ...inbound.Addition) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			// from http.DefaultTransport
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
				if network != "tcp" && network != "tcp4" && network != "tcp6" {
					return nil, errors.New("unsupported network " + network)
				}

				dstAddr := socks5.ParseAddr(address)
				if dstAddr == nil {
					return nil, socks5.ErrAddressNotSupported
				}

				left, right := net.Pipe()

				connCtx, err := inbound.NewHTTP(address, source, right, additions...)
				if err != nil {
					return nil, err
				}
				go tunnel.HandleTCPConn(connCtx.Conn(), connCtx.Metadata())

				return left, nil
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
