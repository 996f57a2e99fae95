package inbound

import (
	"net"
	"net/http"

	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/context"
)

// NewHTTP receive normal http request and return HTTPContext
func NewHTTP(target string, srcConn net.Conn, conn net.Conn, additions ...Addition) (*context.ConnContext, error) {
	metadata := &C.Metadata{}
	metadata.NetWork = C.TCP
	metadata.Type = C.HTTP
	if err := metadata.SetRemoteAddress(target); err != nil {
		return nil, err
	}
	ApplyAdditions(metadata, additions...)
	if ip, port, err := parseAddr(srcConn.RemoteAddr().String()); err == nil {
		metadata.SrcIP = ip
		metadata.SrcPort = port
	}
	if ip, port, err := parseAddr(srcConn.LocalAddr().String()); err == nil {
		metadata.InIP = ip
		metadata.InPort = port
	}
	return context.NewConnContext(conn, metadata), nil
}

// NewHTTPS receive CONNECT request and return ConnContext
func NewHTTPS(request *http.Request, conn net.Conn, additions ...Addition) *context.ConnContext {
	metadata := parseHTTPAddr(request)
	metadata.Type = C.HTTPS
	ApplyAdditions(metadata, additions...)
	if ip, port, err := parseAddr(conn.RemoteAddr().String()); err == nil {
		metadata.SrcIP = ip
		metadata.SrcPort = port
	}
	if ip, port, err := parseAddr(conn.LocalAddr().String()); err == nil {
		metadata.InIP = ip
		metadata.InPort = port
	}
	return context.NewConnContext(conn, metadata)
}
