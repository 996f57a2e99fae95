package socks

import (
	"io"
	"net"

	"github.com/windrose-proxy/windrose/adapter/inbound"
	N "github.com/windrose-proxy/windrose/common/net"
	C "github.com/windrose-proxy/windrose/constant"
	authStore "github.com/windrose-proxy/windrose/listener/auth"
	"github.com/windrose-proxy/windrose/transport/socks4"
	"github.com/windrose-proxy/windrose/transport/socks5"
)

type Listener struct {
	listener net.Listener
	addr     string
	closed   bool
}

// RawAddress implements C.Listener
func (l *Listener) RawAddress() string {
	return l.addr
}

// Address implements C.Listener
func (l *Listener) Address() string {
	return l.listener.Addr().String()
}

// Close implements C.Listener
func (l *Listener) Close() error {
	l.closed = true
	return l.listener.Close()
}

func New(addr string, tunnel C.Tunnel, additions ...inbound.Addition) (*Listener, error) {
	if len(additions) == 0 {
		additions = []inbound.Addition{
			inbound.WithInName("DEFAULT-SOCKS"),
		}
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	sl := &Listener{
		listener: l,
		addr:     addr,
	}
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				if sl.closed {
					break
				}
				continue
			}
			go handleSocks(c, tunnel, additions...)
		}
	}()

	return sl, nil
}

func handleSocks(conn net.Conn, tunnel C.Tunnel, additions ...inbound.Addition) {
	bufConn := N.NewBufferedConn(conn)
	head, err := bufConn.Peek(1)
	if err != nil {
		_ = conn.Close()
		return
	}

	switch head[0] {
	case socks4.Version:
		HandleSocks4(bufConn, tunnel, additions...)
	case socks5.Version:
		HandleSocks5(bufConn, tunnel, additions...)
	default:
		_ = conn.Close()
	}
}

func HandleSocks4(conn net.Conn, tunnel C.Tunnel, additions ...inbound.Addition) {
	authenticator := authStore.Authenticator()
	addr, err := socks4.ServerHandshake(conn, authenticator)
	if err != nil {
		_ = conn.Close()
		return
	}
	connCtx := inbound.NewSocket(socks5.ParseAddr(addr), conn, C.SOCKS4, additions...)
	tunnel.HandleTCPConn(connCtx.Conn(), connCtx.Metadata()) // blocking
}

func HandleSocks5(conn net.Conn, tunnel C.Tunnel, additions ...inbound.Addition) {
	authenticator := authStore.Authenticator()
	target, command, err := socks5.ServerHandshake(conn, authenticator)
	if err != nil {
		_ = conn.Close()
		return
	}
	if command == socks5.CmdUDPAssociate {
		defer conn.Close()
		_, _ = io.Copy(io.Discard, conn)
		return
	}
	connCtx := inbound.NewSocket(target, conn, C.SOCKS5, additions...)
	tunnel.HandleTCPConn(connCtx.Conn(), connCtx.Metadata()) // blocking
}
