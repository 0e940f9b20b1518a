// Package cash issues pickup vouchers through the cash partner network.
package cash

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/config"
	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	"github.com/wekeepgrowing/grantpay/internal/domain/provider"
	"github.com/wekeepgrowing/grantpay/internal/infrastructure/provider/transport"
)

const voucherPath = "/cash-payments/create"

type voucherRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	RecipientID    string          `json:"recipientId"`
	RecipientPhone string          `json:"recipientPhone"`
	PickupLocation string          `json:"pickupLocation,omitempty"`
	Reference      string          `json:"reference"`
	ExpiryDate     time.Time       `json:"expiryDate"`
}

type voucherResponse struct {
	TransactionID   string `json:"transactionId"`
	PinCode         string `json:"pinCode"`
	PickupReference string `json:"pickupReference"`
}

// Provider is the cash voucher dispatcher. Vouchers have no status query.
type Provider struct {
	cfg    config.CashConfig
	client *transport.Client
	now    func() time.Time
	logger *zap.Logger
}

// Option customizes a Provider.
type Option func(*Provider)

// WithClock replaces time.Now for the expiry of payments without a creation time.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// New creates a cash provider. cfg is copied and never re-read.
func New(cfg config.CashConfig, logger *zap.Logger, opts ...Option) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("cash: base_url is required")
	}
	if cfg.VoucherValidity <= 0 {
		cfg.VoucherValidity = 30 * 24 * time.Hour
	}

	logger = logger.Named("cash")
	p := &Provider{
		cfg:    cfg,
		client: transport.NewClient(string(entity.PaymentMethodCash), cfg.BaseURL, cfg.Timeout, logger),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Method() entity.PaymentMethod {
	return entity.PaymentMethodCash
}

// Dispatch issues a voucher that is ready for pickup immediately. The payment
// ID is the partner reference and idempotency key.
func (p *Provider) Dispatch(ctx context.Context, payment *model.Payment) (*provider.DispatchResult, error) {
	if payment.CitizenID == "" || payment.RecipientPhone == "" {
		return nil, domainErrors.NewValidationError("recipient", "cash vouchers need recipient id and phone")
	}

	// Expiry follows the payment, so a retried dispatch sends the same body
	// under the same idempotency key.
	issuedAt := payment.CreatedAt
	if issuedAt.IsZero() {
		issuedAt = p.now()
	}
	expiresAt := issuedAt.Add(p.cfg.VoucherValidity).UTC()
	body := voucherRequest{
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		RecipientID:    payment.CitizenID,
		RecipientPhone: payment.RecipientPhone,
		PickupLocation: payment.PickupLocation,
		Reference:      payment.ID,
		ExpiryDate:     expiresAt,
	}

	var resp voucherResponse
	_, err := p.client.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   voucherPath,
		Headers: map[string]string{
			"Authorization":   "Bearer " + p.cfg.APIKey,
			"Idempotency-Key": payment.ID,
		},
		Body: body,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.TransactionID == "" {
		return nil, domainErrors.NewProviderError(string(entity.PaymentMethodCash),
			domainErrors.ProviderCodeResponse, "voucher response has no transaction id", nil)
	}

	p.logger.Info("Cash voucher issued",
		zap.String("payment_id", payment.ID),
		zap.String("transaction_id", resp.TransactionID),
		zap.Time("expires_at", expiresAt))

	return &provider.DispatchResult{
		TransactionID:       resp.TransactionID,
		ProviderReference:   resp.PickupReference,
		Status:              provider.StatusReadyForPickup,
		EstimatedSettlement: provider.SettlementImmediate,
		PickupPIN:           resp.PinCode,
		ExpiresAt:           &expiresAt,
	}, nil
}
