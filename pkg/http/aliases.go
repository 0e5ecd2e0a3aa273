package http

import (
	"context"
	"net"
)

// NewHostAliasDialer returns a dialer which redirects connections to the
// hosts listed in aliases.  Alias values are either "host" (the original
// port is kept) or "host:port".
//
//	aliases := map[string]string{
//		"el-backstage-cr.tekton.svc.cluster.local": "127.0.0.1:8080",
//	}
func NewHostAliasDialer(aliases map[string]string) ContextDialer {
	return &hostAliasDialer{
		aliases: aliases,
		dialer:  &net.Dialer{},
	}
}

type hostAliasDialer struct {
	aliases map[string]string
	dialer  *net.Dialer
}

func (h *hostAliasDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	alias, ok := h.aliases[host]
	if !ok {
		return nil, errNoFallback
	}
	if _, _, err := net.SplitHostPort(alias); err != nil {
		alias = net.JoinHostPort(alias, port)
	}
	return h.dialer.DialContext(ctx, network, alias)
}

func (h *hostAliasDialer) Close() error { return nil }
