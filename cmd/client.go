package cmd

import (
	"github.com/go-logr/logr"

	"github.com/pipetrigger/pipetrigger/pkg/actions"
	"github.com/pipetrigger/pipetrigger/pkg/actions/builtin"
	"github.com/pipetrigger/pipetrigger/pkg/config"
)

// ClientConfig settings for use with NewClient
type ClientConfig struct {
	// Config is the effective global configuration.
	Config config.Global
	Logger logr.Logger
}

// ClientFactory defines a constructor which assists in the creation of the
// action registry used by commands.  The returned function releases the
// resources held by the registry's actions.
type ClientFactory func(ClientConfig) (*actions.Registry, func(), error)

// NewClient returns a registry of the builtin actions.
func NewClient(cc ClientConfig) (*actions.Registry, func(), error) {
	r, b, err := builtin.NewRegistry(cc.Config, builtin.WithLogger(cc.Logger))
	if err != nil {
		return nil, func() {}, err
	}
	return r, func() { _ = b.Close() }, nil
}

// NewTestClient returns a ClientFactory for a registry of the given actions.
// Intended for use in tests.
func NewTestClient(aa ...actions.Action) ClientFactory {
	return func(ClientConfig) (*actions.Registry, func(), error) {
		r, err := actions.NewRegistry(aa...)
		return r, func() {}, err
	}
}
