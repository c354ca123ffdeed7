// Package coinbase implements the crypto payment variant on Coinbase Commerce
// charges.
package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/storefront/internal/adapter/payment/apiclient"
	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/pkg/signature"
)

const (
	// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
	SignatureHeader = "X-CC-Webhook-Signature"
	apiVersion      = "2018-03-22"
)

// Config configures the Coinbase Commerce gateway.
type Config struct {
	APIURL        string
	APIKey        string
	WebhookSecret string
	Currency      string
	RedirectURL   string
	CancelURL     string
}

type money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type charge struct {
	ID        string            `json:"id"`
	Code      string            `json:"code"`
	HostedURL string            `json:"hosted_url"`
	Metadata  map[string]string `json:"metadata"`
	Pricing   struct {
		Local money `json:"local"`
	} `json:"pricing"`
	Timeline []struct {
		Status  string `json:"status"`
		Context string `json:"context"`
	} `json:"timeline"`
	Payments []struct {
		TransactionID string `json:"transaction_id"`
		Status        string `json:"status"`
	} `json:"payments"`
}

func (c charge) status() string {
	if len(c.Timeline) == 0 {
		return ""
	}
	return c.Timeline[len(c.Timeline)-1].Status
}

func (c charge) transactionID() string {
	for _, p := range c.Payments {
		if p.TransactionID != "" {
			return p.TransactionID
		}
	}
	return ""
}

func (c charge) amount() decimal.Decimal {
	amount, err := decimal.NewFromString(c.Pricing.Local.Amount)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

type chargeEnvelope struct {
	Data charge `json:"data"`
}

type createChargeRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	PricingType string            `json:"pricing_type"`
	LocalPrice  money             `json:"local_price"`
	Metadata    map[string]string `json:"metadata"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	CancelURL   string            `json:"cancel_url,omitempty"`
}

type webhookBody struct {
	ID    string `json:"id"`
	Event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data charge `json:"data"`
	} `json:"event"`
}

// Gateway is the crypto variant. Charges settle asynchronously, so clients
// poll CaptureOrVerify until a webhook or the timeline reports a final state.
type Gateway struct {
	api *apiclient.Client
	cfg Config
}

// NewGateway creates the crypto gateway.
func NewGateway(cfg Config, logger *slog.Logger) (*Gateway, error) {
	header := http.Header{}
	header.Set("X-CC-Api-Key", cfg.APIKey)
	header.Set("X-CC-Version", apiVersion)
	api, err := apiclient.New("coinbase", cfg.APIURL, header, logger)
	if err != nil {
		return nil, err
	}
	return &Gateway{api: api, cfg: cfg}, nil
}

func (g *Gateway) Method() model.PaymentMethod {
	return model.PaymentMethodCrypto
}

// CreateIntent creates a fixed price charge for the order total.
func (g *Gateway) CreateIntent(ctx context.Context, order *model.Order) (*model.PaymentIntent, error) {
	req := createChargeRequest{
		Name:        "Order " + order.ID,
		Description: fmt.Sprintf("%d item(s)", len(order.Items)),
		PricingType: "fixed_price",
		LocalPrice: money{
			Amount:   order.Total.StringFixed(2),
			Currency: strings.ToUpper(g.cfg.Currency),
		},
		Metadata: map[string]string{
			"orderId": order.ID,
			"userId":  fmt.Sprint(order.UserID),
		},
		RedirectURL: g.cfg.RedirectURL,
		CancelURL:   g.cfg.CancelURL,
	}

	var resp chargeEnvelope
	if err := g.api.PostJSON(ctx, "/charges", req, &resp); err != nil {
		return nil, err
	}
	return &model.PaymentIntent{
		Method:      model.PaymentMethodCrypto,
		OrderID:     order.ID,
		Reference:   resp.Data.Code,
		CheckoutURL: resp.Data.HostedURL,
	}, nil
}

// CaptureOrVerify reads the charge timeline.
func (g *Gateway) CaptureOrVerify(ctx context.Context, reference string) (*model.PaymentOutcome, error) {
	var resp chargeEnvelope
	if err := g.api.Get(ctx, "/charges/"+url.PathEscape(reference), &resp); err != nil {
		return nil, err
	}
	c := resp.Data
	status := c.status()

	return &model.PaymentOutcome{
		Outcome:        timelineOutcome(status),
		TransactionID:  c.transactionID(),
		OrderID:        c.Metadata["orderId"],
		ProviderStatus: status,
		Amount:         c.amount(),
	}, nil
}

// Cancel cancels a charge. Coinbase refuses once a payment has been detected,
// which leaves the charge to settle normally.
func (g *Gateway) Cancel(ctx context.Context, reference string) error {
	var resp chargeEnvelope
	if err := g.api.Post(ctx, "/charges/"+url.PathEscape(reference)+"/cancel", &resp); err != nil {
		return fmt.Errorf("cancel charge %s: %w", reference, err)
	}
	return nil
}

func (g *Gateway) VerifyWebhookSignature(header http.Header, body []byte) bool {
	return signature.Verify(g.cfg.WebhookSecret, body, header.Get(SignatureHeader))
}

// ParseWebhook maps charge:* events.
func (g *Gateway) ParseWebhook(body []byte) (*model.PaymentEvent, error) {
	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrMalformedEvent, err)
	}
	if wb.Event.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", domainErrors.ErrMalformedEvent)
	}

	eventID := wb.Event.ID
	if eventID == "" {
		eventID = wb.ID
	}
	data := wb.Event.Data
	return &model.PaymentEvent{
		Method:        model.PaymentMethodCrypto,
		EventID:       eventID,
		EventType:     wb.Event.Type,
		ChargeCode:    data.Code,
		OrderID:       data.Metadata["orderId"],
		TransactionID: data.transactionID(),
		Outcome:       eventOutcome(wb.Event.Type),
	}, nil
}

func eventOutcome(eventType string) model.Outcome {
	switch eventType {
	case "charge:confirmed", "charge:resolved":
		return model.OutcomeConfirmed
	case "charge:failed", "charge:expired":
		return model.OutcomeFailed
	case "charge:created", "charge:pending", "charge:delayed":
		return model.OutcomePending
	}
	return model.OutcomeUnknown
}

func timelineOutcome(status string) model.Outcome {
	switch status {
	case "COMPLETED", "RESOLVED":
		return model.OutcomeConfirmed
	case "EXPIRED", "CANCELED":
		return model.OutcomeFailed
	}
	return model.OutcomePending
}
