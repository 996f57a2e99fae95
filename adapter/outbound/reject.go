package outbound

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/windrose-proxy/windrose/component/dialer"
	C "github.com/windrose-proxy/windrose/constant"
)

type Reject struct {
	*Base
	drop bool
}

// DialContext implements C.ProxyAdapter
func (r *Reject) DialContext(ctx context.Context, metadata *C.Metadata, opts ...dialer.Option) (C.Conn, error) {
	if r.drop {
		return NewConn(newDropConn(), r), nil
	}
	return NewConn(newNopConn(), r), nil
}

// ListenPacketContext implements C.ProxyAdapter
func (r *Reject) ListenPacketContext(ctx context.Context, metadata *C.Metadata, opts ...dialer.Option) (C.PacketConn, error) {
	return newPacketConn(&nopPacketConn{}, r), nil
}

func NewReject() *Reject {
	return &Reject{
		Base: &Base{
			name: "REJECT",
			tp:   C.Reject,
			udp:  true,
		},
	}
}

func NewRejectDrop() *Reject {
	return &Reject{
		Base: &Base{
			name: "REJECT-DROP",
			tp:   C.Reject,
			udp:  true,
		},
		drop: true,
	}
}

func NewPass() *Reject {
	return &Reject{
		Base: &Base{
			name: "PASS",
			tp:   C.Pass,
			udp:  true,
		},
	}
}

type nopConn struct{}

func newNopConn() *nopConn {
	return &nopConn{}
}

func (rw *nopConn) Read(b []byte) (int, error) {
	return 0, io.EOF
}

func (rw *nopConn) Write(b []byte) (int, error) {
	return 0, io.EOF
}

func (rw *nopConn) Close() error                     { return nil }
func (rw *nopConn) LocalAddr() net.Addr              { return nil }
func (rw *nopConn) RemoteAddr() net.Addr             { return nil }
func (rw *nopConn) SetDeadline(time.Time) error      { return nil }
func (rw *nopConn) SetReadDeadline(time.Time) error  { return nil }
func (rw *nopConn) SetWriteDeadline(time.Time) error { return nil }

// dropConn stalls reads for a while instead of failing fast, slowing down
// clients that reconnect aggressively on error
type dropConn struct {
	deadline chan struct{}
}

func newDropConn() *dropConn {
	return &dropConn{deadline: make(chan struct{})}
}

func (rw *dropConn) Read(b []byte) (int, error) {
	select {
	case <-rw.deadline:
	case <-time.After(C.DefaultDropTime):
	}
	return 0, io.EOF
}

func (rw *dropConn) Write(b []byte) (int, error) {
	return 0, io.EOF
}

func (rw *dropConn) Close() error {
	select {
	case <-rw.deadline:
	default:
		close(rw.deadline)
	}
	return nil
}

func (rw *dropConn) LocalAddr() net.Addr  { return nil }
func (rw *dropConn) RemoteAddr() net.Addr { return nil }
func (rw *dropConn) SetDeadline(time.Time) error { return nil }
func (rw *dropConn) SetReadDeadline(time.Time) error {
	return nil
}
func (rw *dropConn) SetWriteDeadline(time.Time) error { return nil }

type nopPacketConn struct{}

func (npc *nopPacketConn) WriteTo(b []byte, addr net.Addr) (n int, err error) {
	return len(b), nil
}

func (npc *nopPacketConn) ReadFrom(b []byte) (int, net.Addr, error) {
	return 0, nil, io.EOF
}

func (npc *nopPacketConn) Close() error                     { return nil }
func (npc *nopPacketConn) LocalAddr() net.Addr              { return &net.UDPAddr{IP: net.IPv4zero, Port: 0} }
func (npc *nopPacketConn) SetDeadline(time.Time) error      { return nil }
func (npc *nopPacketConn) SetReadDeadline(time.Time) error  { return nil }
func (npc *nopPacketConn) SetWriteDeadline(time.Time) error { return nil }
