package provider

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/config"
	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
	"github.com/wekeepgrowing/grantpay/internal/domain/provider"
	"github.com/wekeepgrowing/grantpay/internal/infrastructure/provider/card"
	"github.com/wekeepgrowing/grantpay/internal/infrastructure/provider/cash"
	"github.com/wekeepgrowing/grantpay/internal/infrastructure/provider/eft"
)

// Registry maps payment methods to their rail adapters. It is immutable
// after construction.
type Registry struct {
	dispatchers map[entity.PaymentMethod]provider.Dispatcher
}

// NewRegistry registers dispatchers by their method. A dispatcher that also
// implements provider.Verifier serves status queries.
func NewRegistry(dispatchers ...provider.Dispatcher) *Registry {
	r := &Registry{dispatchers: make(map[entity.PaymentMethod]provider.Dispatcher, len(dispatchers))}
	for _, d := range dispatchers {
		r.dispatchers[d.Method()] = d
	}
	return r
}

// NewFactory builds the adapters for every rail that has configuration.
// Rails without a base URL or key are left out and report UnsupportedMethod.
func NewFactory(cfg config.ProvidersConfig, logger *zap.Logger) (*Registry, error) {
	var dispatchers []provider.Dispatcher

	if cfg.EFT.BaseURL != "" {
		p, err := eft.New(cfg.EFT, logger)
		if err != nil {
			return nil, err
		}
		dispatchers = append(dispatchers, p)
	}

	if cfg.Card.SecretKey != "" {
		p, err := card.New(cfg.Card, logger)
		if err != nil {
			return nil, err
		}
		dispatchers = append(dispatchers, p)
	}

	if cfg.Cash.BaseURL != "" {
		p, err := cash.New(cfg.Cash, logger)
		if err != nil {
			return nil, err
		}
		dispatchers = append(dispatchers, p)
	}

	if len(dispatchers) == 0 {
		return nil, fmt.Errorf("no payment provider configured")
	}

	registry := NewRegistry(dispatchers...)
	logger.Info("Payment providers registered", zap.Strings("methods", registry.Methods()))
	return registry, nil
}

func (r *Registry) Dispatcher(method entity.PaymentMethod) (provider.Dispatcher, error) {
	d, ok := r.dispatchers[method]
	if !ok {
		return nil, &domainErrors.UnsupportedMethodError{Method: string(method), Operation: "dispatch"}
	}
	return d, nil
}

func (r *Registry) Verifier(method entity.PaymentMethod) (provider.Verifier, error) {
	d, ok := r.dispatchers[method]
	if !ok {
		return nil, &domainErrors.UnsupportedMethodError{Method: string(method), Operation: "verification"}
	}
	v, ok := d.(provider.Verifier)
	if !ok {
		return nil, &domainErrors.UnsupportedMethodError{Method: string(method), Operation: "verification"}
	}
	return v, nil
}

// Methods lists the registered methods in declaration order.
func (r *Registry) Methods() []string {
	var methods []string
	for _, m := range entity.PaymentMethods {
		if _, ok := r.dispatchers[m]; ok {
			methods = append(methods, string(m))
		}
	}
	return methods
}
