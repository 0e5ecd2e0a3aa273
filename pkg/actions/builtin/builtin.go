// Package builtin provides the pipeline actions offered to portal templates.
package builtin

import (
	"io"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/pipetrigger/pipetrigger/pkg/actions"
	"github.com/pipetrigger/pipetrigger/pkg/config"
	pthttp "github.com/pipetrigger/pipetrigger/pkg/http"
	"github.com/pipetrigger/pipetrigger/pkg/imagecontext"
	"github.com/pipetrigger/pipetrigger/pkg/notify"
	"github.com/pipetrigger/pipetrigger/pkg/pipelines/tekton"
	"github.com/pipetrigger/pipetrigger/pkg/trigger"
)

const DefaultUserAgent = "pipetrigger"

// Builtins holds the clients shared by the builtin actions.
type Builtins struct {
	cfg       config.Global
	userAgent string
	log       logr.Logger

	transport http.RoundTripper
	trigger   *trigger.Client
	watcher   *tekton.Watcher
	images    *imagecontext.Client
	notifier  *notify.Notifier
}

type Opt func(*Builtins)

func WithTrigger(c *trigger.Client) Opt {
	return func(b *Builtins) {
		b.trigger = c
	}
}

func WithWatcher(w *tekton.Watcher) Opt {
	return func(b *Builtins) {
		b.watcher = w
	}
}

func WithImageContext(c *imagecontext.Client) Opt {
	return func(b *Builtins) {
		b.images = c
	}
}

func WithNotifier(n *notify.Notifier) Opt {
	return func(b *Builtins) {
		b.notifier = n
	}
}

// WithTransport sets the round tripper of the default clients.
func WithTransport(t http.RoundTripper) Opt {
	return func(b *Builtins) {
		b.transport = t
	}
}

func WithUserAgent(ua string) Opt {
	return func(b *Builtins) {
		b.userAgent = ua
	}
}

func WithLogger(l logr.Logger) Opt {
	return func(b *Builtins) {
		b.log = l
	}
}

// New returns the builtin actions configured by cfg.  Clients not given as
// options are created from cfg.
func New(cfg config.Global, opts ...Opt) *Builtins {
	b := &Builtins{
		cfg:       cfg,
		userAgent: DefaultUserAgent,
		log:       logr.Discard(),
	}
	for _, o := range opts {
		o(b)
	}

	if b.transport == nil {
		pool, err := pthttp.CertPool(pthttp.ServiceCAFile)
		if err != nil {
			b.log.Error(err, "cannot load the service CA, using the system pool")
			pool = nil
		}
		b.transport = pthttp.NewRoundTripper(
			pthttp.WithRootCAs(pool),
			pthttp.WithInsecureSkipVerify(cfg.Insecure),
			pthttp.WithUserAgent(b.userAgent),
			pthttp.WithFallbackDialer(pthttp.NewHostAliasDialer(cfg.HostAliases)))
	}
	if b.trigger == nil {
		b.trigger = trigger.NewClient(
			trigger.WithTransport(b.transport),
			trigger.WithVerbose(cfg.Verbose),
			trigger.WithLogger(b.log.WithName("trigger")))
	}
	if b.watcher == nil {
		b.watcher = tekton.NewWatcher(
			tekton.WithWaitOptions(tekton.WaitOptions{
				StartInterval:  cfg.StartInterval,
				StartAttempts:  cfg.StartAttempts,
				FinishInterval: cfg.FinishInterval,
				FinishAttempts: cfg.FinishAttempts,
			}),
			tekton.WithLogger(b.log.WithName("tekton")))
	}
	if b.images == nil {
		b.images = imagecontext.NewClient(cfg.BackendURL,
			imagecontext.WithRetries(cfg.ImageContextRetries),
			imagecontext.WithTransport(b.transport),
			imagecontext.WithLogger(b.log.WithName("imagecontext")))
	}
	if b.notifier == nil {
		b.notifier = notify.NewNotifier(cfg.NotifySink,
			notify.WithSource("/"+b.userAgent),
			notify.WithTransport(b.transport))
	}
	return b
}

// Actions returns every builtin action.
func (b *Builtins) Actions() []actions.Action {
	return []actions.Action{
		b.clusterDeploy(),
		b.aceDeploy(),
		b.mqBuild(),
		b.datacapDeploy(),
		b.devSecOps(),
	}
}

// Close releases idle connections of the default transport.
func (b *Builtins) Close() error {
	if c, ok := b.transport.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewRegistry returns a registry of the builtin actions.
func NewRegistry(cfg config.Global, opts ...Opt) (*actions.Registry, *Builtins, error) {
	b := New(cfg, opts...)
	r, err := actions.NewRegistry(b.Actions()...)
	if err != nil {
		_ = b.Close()
		return nil, nil, err
	}
	return r, b, nil
}
