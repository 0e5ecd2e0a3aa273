package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

type ContextDialer interface {
	DialContext(ctx context.Context, network string, addr string) (net.Conn, error)
	Close() error
}

type RoundTripCloser interface {
	http.RoundTripper
	io.Closer
}

type options struct {
	rootCAs            *x509.CertPool
	fallbackDialer     ContextDialer
	insecureSkipVerify bool
	userAgent          string
}

type Option func(*options)

// WithRootCAs sets the pool used to verify server certificates.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(o *options) {
		o.rootCAs = pool
	}
}

// WithFallbackDialer sets the dialer used when the address cannot be resolved.
func WithFallbackDialer(dialer ContextDialer) Option {
	return func(o *options) {
		o.fallbackDialer = dialer
	}
}

func WithInsecureSkipVerify(insecureSkipVerify bool) Option {
	return func(o *options) {
		o.insecureSkipVerify = insecureSkipVerify
	}
}

func WithUserAgent(userAgent string) Option {
	return func(o *options) {
		o.userAgent = userAgent
	}
}

// NewRoundTripper returns new closable RoundTripper that first tries to dial connection in standard way,
// if the dial operation fails due to hostname resolution the RoundTripper tries the fallback dialer.
//
// This is useful for reaching cluster internal EventListener services (*.svc.cluster.local)
// from outside the cluster, e.g. through a port-forward registered as a host alias.
func NewRoundTripper(opts ...Option) RoundTripCloser {
	o := options{
		fallbackDialer:     noopDialer{},
		insecureSkipVerify: false,
	}
	for _, option := range opts {
		option(&o)
	}

	httpTransport := newHTTPTransport()

	primaryDialer := dialContextFn(httpTransport.DialContext)
	combinedDialer := newDialerWithFallback(primaryDialer, o.fallbackDialer)

	httpTransport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: o.insecureSkipVerify,
		RootCAs:            o.rootCAs,
	}
	httpTransport.DialContext = combinedDialer.DialContext

	return &roundTripCloser{
		Transport: httpTransport,
		dialer:    combinedDialer,
		userAgent: o.userAgent,
	}
}

func newHTTPTransport() *http.Transport {
	if dt, ok := http.DefaultTransport.(*http.Transport); ok {
		return dt.Clone()
	} else {
		return &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   time.Minute,
				KeepAlive: time.Minute,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}
}

type roundTripCloser struct {
	*http.Transport
	dialer    ContextDialer
	userAgent string
}

func (r *roundTripCloser) RoundTrip(req *http.Request) (*http.Response, error) {
	if r.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", r.userAgent)
	}
	return r.Transport.RoundTrip(req)
}

func (r *roundTripCloser) Close() error {
	r.Transport.CloseIdleConnections()
	return r.dialer.Close()
}

func newDialerWithFallback(primaryDialer ContextDialer, fallbackDialer ContextDialer) *dialerWithFallback {
	return &dialerWithFallback{
		primaryDialer:  primaryDialer,
		fallbackDialer: fallbackDialer,
	}
}

type dialerWithFallback struct {
	primaryDialer  ContextDialer
	fallbackDialer ContextDialer
}

func (d *dialerWithFallback) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := d.primaryDialer.DialContext(ctx, network, address)
	if err == nil {
		return conn, nil
	}

	var dnsErr *net.DNSError
	if !errors.As(err, &dnsErr) {
		return nil, err
	}

	conn, fallbackErr := d.fallbackDialer.DialContext(ctx, network, address)
	if errors.Is(fallbackErr, errNoFallback) {
		return nil, err
	}
	return conn, fallbackErr
}

func (d *dialerWithFallback) Close() error {
	var err error
	errs := make([]error, 0, 2)

	err = d.primaryDialer.Close()
	if err != nil {
		errs = append(errs, err)
	}

	err = d.fallbackDialer.Close()
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to Close(): %v", errs)
	}

	return nil
}

type dialContextFn func(ctx context.Context, network string, addr string) (net.Conn, error)

func (d dialContextFn) DialContext(ctx context.Context, network string, addr string) (net.Conn, error) {
	return d(ctx, network, addr)
}

func (d dialContextFn) Close() error { return nil }

var errNoFallback = errors.New("no fallback dialer")

type noopDialer struct{}

func (noopDialer) DialContext(context.Context, string, string) (net.Conn, error) {
	return nil, errNoFallback
}

func (noopDialer) Close() error { return nil }
