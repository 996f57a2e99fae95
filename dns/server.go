package dns

import (
	"context"
	"errors"
	"net"

	"github.com/windrose-proxy/windrose/common/sockopt"
	"github.com/windrose-proxy/windrose/component/resolver"
	"github.com/windrose-proxy/windrose/log"

	D "github.com/miekg/dns"
)

var (
	address string
	server  = &Server{}
)

type Server struct {
	*D.Server
	handler handler
}

// ServeDNS implement D.Handler ServeDNS
func (s *Server) ServeDNS(w D.ResponseWriter, r *D.Msg) {
	msg, err := handlerWithContext(s.handler, r)
	if err != nil {
		D.HandleFailed(w, r)
		return
	}
	msg.Compress = true
	_ = w.WriteMsg(msg)
}

func handlerWithContext(handler handler, msg *D.Msg) (*D.Msg, error) {
	ctx, cancel := context.WithTimeout(context.Background(), resolver.DefaultDNSTimeout)
	defer cancel()
	return HandlerWithContext(ctx, handler, msg)
}

// HandlerWithContext resolves msg through handler under ctx. It is the
// entrypoint for hijacked DNS traffic which already carries a deadline.
func HandlerWithContext(ctx context.Context, handler handler, msg *D.Msg) (*D.Msg, error) {
	if len(msg.Question) == 0 {
		return nil, errors.New("at least one question is required")
	}

	return handler(NewContext(ctx), msg)
}

func (s *Server) setHandler(handler handler) {
	s.handler = handler
}

// ReCreateServer binds the local DNS server on addr, tearing down the
// previous instance when the address changes.
func ReCreateServer(addr string, resolver *Resolver, mapper *ResolverEnhancer) {
	if addr == address && resolver != nil {
		handler := NewHandler(resolver, mapper)
		server.setHandler(handler)
		return
	}

	if server.Server != nil {
		_ = server.Shutdown()
		server = &Server{}
		address = ""
	}

	if addr == "" {
		return
	}

	var err error
	defer func() {
		if err != nil {
			log.Errorln("Start DNS server error: %s", err.Error())
		}
	}()

	_, port, err := net.SplitHostPort(addr)
	if port == "0" || port == "" || err != nil {
		return
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return
	}

	p, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return
	}

	if err = sockopt.UDPReuseaddr(p); err != nil {
		log.Warnln("Failed to Reuse UDP Address: %s", err)
		err = nil
	}

	address = addr
	handler := NewHandler(resolver, mapper)
	server = &Server{handler: handler}
	server.Server = &D.Server{Addr: addr, PacketConn: p, Handler: server}

	go func() {
		_ = server.ActivateAndServe()
	}()

	log.Infoln("DNS server listening at: %s", p.LocalAddr().String())
}
