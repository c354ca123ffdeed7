package payment

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/storefront/internal/adapter/payment/coinbase"
	"github.com/polkiloo/storefront/internal/adapter/payment/stripe"
	"github.com/polkiloo/storefront/internal/config"
	"github.com/polkiloo/storefront/internal/domain/gateway"
)

// Module exposes the gateway registry to the fx graph.
var Module = fx.Provide(
	newRegistry,
	func(r *Registry) gateway.Registry { return r },
)

type registryParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newRegistry(p registryParams) (*Registry, error) {
	cfg := p.Config

	checkout, err := stripe.NewCheckoutGateway(stripe.Config{
		APIURL:        cfg.Stripe.APIURL,
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.CheckoutWebhookSecret,
		Currency:      cfg.Currency,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
	}, p.Logger)
	if err != nil {
		return nil, err
	}

	card, err := stripe.NewCardGateway(stripe.Config{
		APIURL:        cfg.Stripe.APIURL,
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.CardWebhookSecret,
		Currency:      cfg.Currency,
	}, p.Logger)
	if err != nil {
		return nil, err
	}

	crypto, err := coinbase.NewGateway(coinbase.Config{
		APIURL:        cfg.Coinbase.APIURL,
		APIKey:        cfg.Coinbase.APIKey,
		WebhookSecret: cfg.Coinbase.WebhookSecret,
		Currency:      cfg.Currency,
		RedirectURL:   cfg.Coinbase.RedirectURL,
		CancelURL:     cfg.Coinbase.CancelURL,
	}, p.Logger)
	if err != nil {
		return nil, err
	}

	if cfg.Stripe.SecretKey == "" {
		p.Logger.Warn("STRIPE_SECRET_KEY is empty, card and hosted checkout calls will be rejected")
	}
	if cfg.Coinbase.APIKey == "" {
		p.Logger.Warn("COINBASE_API_KEY is empty, crypto charge calls will be rejected")
	}

	return NewRegistry(checkout, card, crypto), nil
}
