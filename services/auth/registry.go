// Package authsvc selects and constructs the active identity provider
// adapter from configuration.
package authsvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/shulelabs/shule/core"
	"github.com/shulelabs/shule/core/auth"
	firebaseauth "github.com/shulelabs/shule/services/auth/firebase"
	mockauth "github.com/shulelabs/shule/services/auth/mock"
	oidcauth "github.com/shulelabs/shule/services/auth/oidc"
)

// Factory builds a provider adapter from configuration.
type Factory func(ctx context.Context, conf *core.Config) (auth.Provider, error)

// Registry stores the known provider factories.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("mock", func(_ context.Context, conf *core.Config) (auth.Provider, error) {
		return mockauth.NewProvider(conf), nil
	})
	r.Register("firebase", func(ctx context.Context, conf *core.Config) (auth.Provider, error) {
		return firebaseauth.NewProvider(ctx, conf)
	})
	r.Register("oidc", func(ctx context.Context, conf *core.Config) (auth.Provider, error) {
		return oidcauth.NewProvider(ctx, conf)
	})
	return r
}

func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// NewProvider constructs the provider named in the config. Missing provider
// config deterministically falls back to the mock adapter instead of
// crashing; the fallback is loudly logged.
func (r *Registry) NewProvider(ctx context.Context, conf *core.Config, logger core.Logger) (auth.Provider, error) {
	name := conf.Auth.Provider
	if name == "" {
		logger.Warn("no identity provider configured; falling back to the mock adapter (dev only)")
		name = "mock"
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, errors.Errorf("unknown identity provider %q", name)
	}
	provider, err := factory(ctx, conf)
	if err != nil {
		return nil, errors.Wrapf(err, "constructing %q provider", name)
	}
	logger.Info("identity provider active: " + provider.Name())
	return provider, nil
}
