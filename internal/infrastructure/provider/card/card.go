// Package card authorizes grant payments against stored card tokens through
// Stripe PaymentIntents.
package card

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/config"
	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	"github.com/wekeepgrowing/grantpay/internal/domain/provider"
)

const metadataPaymentID = "payment_id"

// Provider is the card dispatcher and verifier.
type Provider struct {
	api    *client.API
	now    func() time.Time
	logger *zap.Logger
}

// Option customizes a Provider.
type Option func(*options)

type options struct {
	now        func() time.Time
	httpClient *http.Client
}

// WithClock replaces time.Now for settlement dates.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithHTTPClient replaces the HTTP client used by the Stripe backend.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New creates a card provider with its own Stripe client; the global stripe.Key
// is never touched.
func New(cfg config.CardConfig, logger *zap.Logger, opts ...Option) (*Provider, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("card: secret_key is required")
	}

	o := options{now: time.Now, httpClient: &http.Client{Timeout: cfg.Timeout}}
	for _, opt := range opts {
		opt(&o)
	}

	logger = logger.Named("card")
	backendConfig := &stripe.BackendConfig{
		HTTPClient:        o.httpClient,
		LeveledLogger:     logger.Sugar(),
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
	}
	if cfg.BaseURL != "" {
		backendConfig.URL = stripe.String(cfg.BaseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig)

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	return &Provider{api: api, now: o.now, logger: logger}, nil
}

func (p *Provider) Method() entity.PaymentMethod {
	return entity.PaymentMethodCard
}

// Dispatch confirms a PaymentIntent on the recipient's stored payment method.
// The payment ID is sent as the Stripe idempotency key.
func (p *Provider) Dispatch(ctx context.Context, payment *model.Payment) (*provider.DispatchResult, error) {
	if payment.CardToken == "" {
		return nil, domainErrors.NewValidationError("card_token", "card token is required for card payments")
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(toMinorUnits(payment.Amount)),
		Currency:           stripe.String(currency(payment.Currency)),
		PaymentMethod:      stripe.String(payment.CardToken),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
		OffSession:         stripe.Bool(true),
		Description:        stripe.String(description(payment)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(payment.ID)
	params.AddMetadata(metadataPaymentID, payment.ID)
	params.AddMetadata("grant_id", payment.GrantID)

	dispatchedAt := p.now()
	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, p.wrapError("failed to create payment intent", err)
	}

	status := mapStatus(pi.Status)
	if status == provider.StatusFailed {
		return nil, domainErrors.NewProviderError(string(entity.PaymentMethodCard),
			domainErrors.ProviderCodeRejected,
			fmt.Sprintf("payment intent %s ended in status %s", pi.ID, pi.Status), nil)
	}

	p.logger.Info("Card payment authorized",
		zap.String("payment_id", payment.ID),
		zap.String("payment_intent_id", pi.ID),
		zap.String("status", string(pi.Status)))

	return &provider.DispatchResult{
		TransactionID:       pi.ID,
		ProviderReference:   chargeReference(pi),
		Status:              status,
		EstimatedSettlement: provider.NextBusinessDay(dispatchedAt).Format(provider.SettlementDateLayout),
	}, nil
}

// QueryStatus retrieves the PaymentIntent, or searches for it by payment ID
// metadata when the dispatch outcome was never recorded.
func (p *Provider) QueryStatus(ctx context.Context, payment *model.Payment, reference string) (*provider.StatusResult, error) {
	if payment.TransactionID != nil && *payment.TransactionID != "" {
		params := &stripe.PaymentIntentParams{}
		params.Context = ctx
		pi, err := p.api.PaymentIntents.Get(*payment.TransactionID, params)
		if err != nil {
			var stripeErr *stripe.Error
			if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
				return &provider.StatusResult{Found: false, Status: provider.StatusFailed, Reason: "payment intent not found"}, nil
			}
			return nil, p.wrapError("failed to retrieve payment intent", err)
		}
		return statusResult(pi), nil
	}

	search := &stripe.PaymentIntentSearchParams{}
	search.Context = ctx
	search.Query = fmt.Sprintf("metadata['%s']:'%s'", metadataPaymentID, payment.ID)
	iter := p.api.PaymentIntents.Search(search)
	if iter.Next() {
		return statusResult(iter.PaymentIntent()), nil
	}
	if err := iter.Err(); err != nil {
		return nil, p.wrapError("failed to search payment intents", err)
	}

	return &provider.StatusResult{Found: false, Status: provider.StatusFailed, Reason: "no payment intent for payment"}, nil
}

func (p *Provider) wrapError(message string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		code := string(stripeErr.Code)
		if code == "" {
			code = string(stripeErr.Type)
		}
		p.logger.Warn("Stripe request failed",
			zap.String("code", code),
			zap.Int("status_code", stripeErr.HTTPStatusCode),
			zap.String("message", stripeErr.Msg))
		return domainErrors.NewProviderError(string(entity.PaymentMethodCard), code, stripeErr.Msg, err)
	}

	p.logger.Error(message, zap.Error(err))
	return domainErrors.NewProviderError(string(entity.PaymentMethodCard), domainErrors.ProviderCodeRequest, message, err)
}

func statusResult(pi *stripe.PaymentIntent) *provider.StatusResult {
	res := &provider.StatusResult{
		Found:         true,
		TransactionID: pi.ID,
		Reference:     chargeReference(pi),
		Status:        mapStatus(pi.Status),
	}
	if pi.LastPaymentError != nil {
		res.Reason = pi.LastPaymentError.Msg
	}
	return res
}

func mapStatus(s stripe.PaymentIntentStatus) provider.Status {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return provider.StatusCompleted
	case stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresCapture:
		return provider.StatusAccepted
	case stripe.PaymentIntentStatusRequiresConfirmation:
		return provider.StatusPending
	default:
		return provider.StatusFailed
	}
}

func chargeReference(pi *stripe.PaymentIntent) string {
	if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
		return pi.LatestCharge.ID
	}
	return pi.ID
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func currency(c string) string {
	if c == "" {
		return "zar"
	}
	return strings.ToLower(c)
}

func description(payment *model.Payment) string {
	if payment.GrantType == "" {
		return "Grant Payment"
	}
	return "Grant Payment - " + payment.GrantType
}
