// Package stripe implements the hosted-checkout and embedded-card payment
// variants on top of stripe-go.
package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/polkiloo/storefront/internal/adapter/payment/apiclient"
	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
)

// SignatureHeader carries the timestamped webhook signature.
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance is the accepted clock skew for webhook timestamps.
const DefaultTolerance = 5 * time.Minute

// Config configures a Stripe backed gateway.
type Config struct {
	APIURL        string
	SecretKey     string
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
}

// newBackend builds a stripe-go backend bound to cfg.APIURL. Retries are left
// to the reconciler, which already paces its attempts.
func newBackend(cfg Config, logger *slog.Logger) (stripego.Backend, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("stripe url must be set")
	}
	return stripego.GetBackendWithConfig(stripego.APIBackend, &stripego.BackendConfig{
		URL:               stripego.String(cfg.APIURL),
		HTTPClient:        &http.Client{Timeout: 15 * time.Second},
		MaxNetworkRetries: stripego.Int64(0),
		LeveledLogger:     leveledLogger{logger: logger.With(slog.String("provider", "stripe"))},
	}), nil
}

// leveledLogger routes stripe-go's printf logging into slog.
type leveledLogger struct {
	logger *slog.Logger
}

func (l leveledLogger) Debugf(format string, v ...any) { l.logger.Debug(fmt.Sprintf(format, v...)) }
func (l leveledLogger) Infof(format string, v ...any)  { l.logger.Info(fmt.Sprintf(format, v...)) }
func (l leveledLogger) Warnf(format string, v ...any)  { l.logger.Warn(fmt.Sprintf(format, v...)) }
func (l leveledLogger) Errorf(format string, v ...any) { l.logger.Error(fmt.Sprintf(format, v...)) }

// providerError maps stripe-go errors onto the errors callers branch on.
func providerError(err error) error {
	var se *stripego.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.HTTPStatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: stripe %s", domainErrors.ErrNotFound, se.Msg)
	case http.StatusTooManyRequests:
		retryAfter := ""
		if se.LastResponse != nil {
			retryAfter = se.LastResponse.Header.Get("Retry-After")
		}
		return apiclient.TooManyRequestsError{RetryAfter: apiclient.ParseRetryAfter(retryAfter)}
	}
	return fmt.Errorf("stripe api error: status %d: %w", se.HTTPStatusCode, err)
}

// webhookVerifier checks Stripe-Signature headers with stripe-go's webhook
// package.
type webhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func (v webhookVerifier) verify(header http.Header, body []byte) bool {
	if v.secret == "" {
		return false
	}
	return webhook.ValidatePayloadWithTolerance(body, header.Get(SignatureHeader), v.secret, v.tolerance) == nil
}

// decodeEvent reads a verified envelope and decodes its object into object.
// The API version is not checked: only ids, status and metadata are read.
func decodeEvent(body []byte, object any) (*stripego.Event, error) {
	var ev stripego.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrMalformedEvent, err)
	}
	if ev.Type == "" || ev.Data == nil || len(ev.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: missing type or object", domainErrors.ErrMalformedEvent)
	}
	if err := json.Unmarshal(ev.Data.Raw, object); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrMalformedEvent, err)
	}
	return &ev, nil
}
