// Package eft dispatches grant payments as credit transfers through the
// inter-bank switch.
package eft

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/config"
	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	"github.com/wekeepgrowing/grantpay/internal/domain/provider"
	"github.com/wekeepgrowing/grantpay/internal/infrastructure/crypto"
	"github.com/wekeepgrowing/grantpay/internal/infrastructure/provider/transport"
)

const (
	creditTransferPath = "/payments/credit-transfer"
	transactionType    = "CREDIT_TRANSFER"
)

type account struct {
	AccountNumber string `json:"accountNumber"`
	BranchCode    string `json:"branchCode,omitempty"`
	BankCode      string `json:"bankCode"`
	AccountType   string `json:"accountType,omitempty"`
}

type creditTransferRequest struct {
	TransactionType       string          `json:"transactionType"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	CreditorAccount       account         `json:"creditorAccount"`
	DebtorAccount         account         `json:"debtorAccount"`
	RemittanceInformation string          `json:"remittanceInformation"`
	RequestID             string          `json:"requestId"`
}

type switchResponse struct {
	TransactionID string `json:"transactionId"`
	BankReference string `json:"bankReference"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
}

// Provider is the EFT dispatcher and verifier.
type Provider struct {
	cfg    config.EFTConfig
	client *transport.Client
	signer crypto.Signer
	now    func() time.Time
	logger *zap.Logger
}

// Option customizes a Provider.
type Option func(*Provider)

// WithClock replaces time.Now for signing timestamps and settlement dates.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.client = transport.NewClientWithHTTP(string(entity.PaymentMethodEFT), p.cfg.BaseURL, c, p.logger)
	}
}

// New creates an EFT provider. cfg is copied and never re-read.
func New(cfg config.EFTConfig, logger *zap.Logger, opts ...Option) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("eft: base_url is required")
	}
	signer, err := crypto.NewHMACSigner(cfg.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("eft: %w", err)
	}

	p := &Provider{
		cfg:    cfg,
		signer: signer,
		now:    time.Now,
		logger: logger.Named("eft"),
	}
	p.client = transport.NewClient(string(entity.PaymentMethodEFT), cfg.BaseURL, cfg.Timeout, p.logger)
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Method() entity.PaymentMethod {
	return entity.PaymentMethodEFT
}

// Dispatch submits a credit transfer. The payment ID is both the switch
// requestId and the Idempotency-Key header, so a retry after a timeout
// returns the original transfer.
func (p *Provider) Dispatch(ctx context.Context, payment *model.Payment) (*provider.DispatchResult, error) {
	bank := payment.BankDetails()
	body := creditTransferRequest{
		TransactionType: transactionType,
		Amount:          payment.Amount,
		Currency:        payment.Currency,
		CreditorAccount: account{
			AccountNumber: bank.AccountNumber,
			BranchCode:    bank.BranchCode,
			BankCode:      bank.BankCode,
			AccountType:   bank.AccountType,
		},
		DebtorAccount: account{
			AccountNumber: p.cfg.DebtorAccount,
			BankCode:      p.cfg.DebtorBankCode,
		},
		RemittanceInformation: remittance(payment),
		RequestID:             payment.ID,
	}

	dispatchedAt := p.now()
	var resp switchResponse
	_, err := p.client.Do(ctx, transport.Request{
		Method:  http.MethodPost,
		Path:    creditTransferPath,
		Headers: p.headers(payment.ID),
		Body:    body,
		Sign:    p.sign(dispatchedAt),
	}, &resp)
	if err != nil {
		return nil, err
	}

	status := mapStatus(resp.Status)
	if status == provider.StatusFailed {
		return nil, domainErrors.NewProviderError(string(entity.PaymentMethodEFT),
			domainErrors.ProviderCodeRejected, rejectionMessage(resp), nil)
	}
	if resp.TransactionID == "" {
		return nil, domainErrors.NewProviderError(string(entity.PaymentMethodEFT),
			domainErrors.ProviderCodeResponse, "switch response has no transaction id", nil)
	}

	p.logger.Info("Credit transfer accepted",
		zap.String("payment_id", payment.ID),
		zap.String("transaction_id", resp.TransactionID),
		zap.String("status", resp.Status))

	return &provider.DispatchResult{
		TransactionID:       resp.TransactionID,
		ProviderReference:   resp.BankReference,
		Status:              status,
		EstimatedSettlement: provider.NextBusinessDay(dispatchedAt).Format(provider.SettlementDateLayout),
	}, nil
}

// QueryStatus asks the switch for a transfer's status. Without a reference
// the transfer is looked up by its requestId.
func (p *Provider) QueryStatus(ctx context.Context, payment *model.Payment, reference string) (*provider.StatusResult, error) {
	var path string
	switch {
	case payment.TransactionID != nil && *payment.TransactionID != "":
		path = "/payments/" + url.PathEscape(*payment.TransactionID) + "/status"
		if reference != "" {
			path += "?bankReference=" + url.QueryEscape(reference)
		}
	default:
		path = "/payments/requests/" + url.PathEscape(payment.ID)
	}

	var resp switchResponse
	code, err := p.client.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		Path:    path,
		Headers: p.headers(""),
		Sign:    p.sign(p.now()),
	}, &resp)
	if code == http.StatusNotFound {
		return &provider.StatusResult{Found: false, Status: provider.StatusFailed, Reason: "transfer unknown to switch"}, nil
	}
	if err != nil {
		return nil, err
	}

	return &provider.StatusResult{
		Found:         true,
		TransactionID: resp.TransactionID,
		Reference:     resp.BankReference,
		Status:        mapStatus(resp.Status),
		Reason:        resp.Reason,
	}, nil
}

func (p *Provider) headers(idempotencyKey string) map[string]string {
	h := map[string]string{
		"X-Institution-Id": p.cfg.InstitutionID,
		"X-API-Key":        p.cfg.APIKey,
	}
	if idempotencyKey != "" {
		h["Idempotency-Key"] = idempotencyKey
	}
	return h
}

// sign adds X-Timestamp and X-Signature = hex(HMAC-SHA256(body || timestamp)).
func (p *Provider) sign(at time.Time) func([]byte, http.Header) {
	ts := at.UTC().Format(time.RFC3339)
	return func(body []byte, h http.Header) {
		h.Set("X-Timestamp", ts)
		h.Set("X-Signature", p.signer.Sign(body, []byte(ts)))
	}
}

func remittance(payment *model.Payment) string {
	if payment.GrantType == "" {
		return "Grant Payment"
	}
	return "Grant Payment - " + payment.GrantType
}

func rejectionMessage(resp switchResponse) string {
	if resp.Reason != "" {
		return resp.Reason
	}
	return "credit transfer rejected with status " + resp.Status
}

func mapStatus(s string) provider.Status {
	switch strings.ToUpper(s) {
	case "COMPLETED", "SETTLED", "SUCCESS":
		return provider.StatusCompleted
	case "FAILED", "REJECTED", "RETURNED", "CANCELLED":
		return provider.StatusFailed
	case "PENDING", "PROCESSING":
		return provider.StatusPending
	default:
		return provider.StatusAccepted
	}
}
