// Package payment registers the payment gateways by method.
package payment

import (
	"fmt"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/gateway"
	"github.com/polkiloo/storefront/internal/domain/model"
)

// Registry resolves gateways by the method they serve.
type Registry struct {
	gateways map[model.PaymentMethod]gateway.Gateway
}

// NewRegistry indexes gateways by Method. A later gateway replaces an earlier
// one for the same method.
func NewRegistry(gateways ...gateway.Gateway) *Registry {
	r := &Registry{gateways: make(map[model.PaymentMethod]gateway.Gateway, len(gateways))}
	for _, gw := range gateways {
		r.gateways[gw.Method()] = gw
	}
	return r
}

func (r *Registry) Gateway(method model.PaymentMethod) (gateway.Gateway, error) {
	gw, ok := r.gateways[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domainErrors.ErrUnsupportedPaymentMethod, method)
	}
	return gw, nil
}

// Methods lists the registered methods in canonical order.
func (r *Registry) Methods() []model.PaymentMethod {
	var out []model.PaymentMethod
	for _, m := range model.PaymentMethods() {
		if _, ok := r.gateways[m]; ok {
			out = append(out, m)
		}
	}
	return out
}
