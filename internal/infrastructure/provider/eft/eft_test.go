package eft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/config"
	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	"github.com/wekeepgrowing/grantpay/internal/domain/provider"
	"github.com/wekeepgrowing/grantpay/internal/infrastructure/crypto"
)

// fakeSwitch records transfers by Idempotency-Key the way the real switch does.
type fakeSwitch struct {
	t         *testing.T
	mu        sync.Mutex
	transfers map[string]string
	requests  int
	status    string
}

func (s *fakeSwitch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	signer, _ := crypto.NewHMACSigner("switch-secret")
	body, _ := io.ReadAll(r.Body)
	if !signer.Verify(r.Header.Get("X-Signature"), body, []byte(r.Header.Get("X-Timestamp"))) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"BAD_SIGNATURE","message":"signature mismatch"}`))
		return
	}
	assert.Equal(s.t, "INST-1", r.Header.Get("X-Institution-Id"))
	assert.Equal(s.t, "api-key", r.Header.Get("X-API-Key"))

	switch {
	case r.Method == http.MethodPost && r.URL.Path == creditTransferPath:
		s.requests++
		var req creditTransferRequest
		require.NoError(s.t, json.Unmarshal(body, &req))
		assert.Equal(s.t, transactionType, req.TransactionType)
		assert.Equal(s.t, req.RequestID, r.Header.Get("Idempotency-Key"))
		assert.Equal(s.t, "1000123", req.DebtorAccount.AccountNumber)

		txID, ok := s.transfers[req.RequestID]
		if !ok {
			txID = fmt.Sprintf("SW-%d", len(s.transfers)+1)
			s.transfers[req.RequestID] = txID
		}
		json.NewEncoder(w).Encode(switchResponse{TransactionID: txID, BankReference: "BR-" + txID, Status: s.status})
	case r.Method == http.MethodGet && r.URL.Path == "/payments/requests/known":
		json.NewEncoder(w).Encode(switchResponse{TransactionID: "SW-9", BankReference: "BR-SW-9", Status: "PROCESSING"})
	case r.Method == http.MethodGet && r.URL.Path == "/payments/SW-1/status":
		assert.Equal(s.t, "BR-SW-1", r.URL.Query().Get("bankReference"))
		json.NewEncoder(w).Encode(switchResponse{TransactionID: "SW-1", BankReference: "BR-SW-1", Status: "SETTLED"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestProvider(t *testing.T, baseURL string, now time.Time) *Provider {
	t.Helper()
	p, err := New(config.EFTConfig{
		BaseURL:        baseURL,
		InstitutionID:  "INST-1",
		APIKey:         "api-key",
		SigningSecret:  "switch-secret",
		DebtorAccount:  "1000123",
		DebtorBankCode: "RESERVE",
		Timeout:        5 * time.Second,
	}, zap.NewNop(), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return p
}

func testPayment(id string) *model.Payment {
	p := &model.Payment{
		ID:        id,
		GrantID:   "G1",
		GrantType: "OLD_AGE",
		Amount:    decimal.NewFromInt(2180),
		Currency:  "ZAR",
		Method:    entity.PaymentMethodEFT,
		Status:    entity.PaymentStatusPending,
	}
	p.SetRecipient(entity.Recipient{
		CitizenID: "8001015009087",
		Name:      "Sipho Dlamini",
		BankDetails: entity.BankDetails{
			AccountNumber: "62123456789",
			BranchCode:    "250655",
			BankCode:      "FNB",
			AccountType:   "savings",
		},
	})
	return p
}

func TestDispatch_IdempotentRetry(t *testing.T) {
	sw := &fakeSwitch{t: t, transfers: map[string]string{}, status: "ACCEPTED"}
	server := httptest.NewServer(sw)
	defer server.Close()

	saturday := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	p := newTestProvider(t, server.URL, saturday)
	payment := testPayment("pay-1")

	first, err := p.Dispatch(context.Background(), payment)
	require.NoError(t, err)
	second, err := p.Dispatch(context.Background(), payment)
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID)
	sw.mu.Lock()
	assert.Equal(t, 2, sw.requests)
	assert.Len(t, sw.transfers, 1, "retry must not create a second transfer")
	sw.mu.Unlock()
	assert.Equal(t, provider.StatusAccepted, first.Status)
	assert.Equal(t, "BR-SW-1", first.ProviderReference)
	assert.Equal(t, "2024-03-11", first.EstimatedSettlement)
}

func TestDispatch_Rejected(t *testing.T) {
	sw := &fakeSwitch{t: t, transfers: map[string]string{}, status: "REJECTED"}
	server := httptest.NewServer(sw)
	defer server.Close()

	p := newTestProvider(t, server.URL, time.Now())
	_, err := p.Dispatch(context.Background(), testPayment("pay-2"))

	var providerErr *domainErrors.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, domainErrors.ProviderCodeRejected, providerErr.Code)
	assert.Equal(t, "eft", providerErr.Method)
}

func TestDispatch_BadSignatureSurfacesProviderError(t *testing.T) {
	sw := &fakeSwitch{t: t, transfers: map[string]string{}, status: "ACCEPTED"}
	server := httptest.NewServer(sw)
	defer server.Close()

	p, err := New(config.EFTConfig{BaseURL: server.URL, SigningSecret: "wrong"}, zap.NewNop())
	require.NoError(t, err)

	_, err = p.Dispatch(context.Background(), testPayment("pay-3"))
	var providerErr *domainErrors.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, "BAD_SIGNATURE", providerErr.Code)
}

func TestQueryStatus(t *testing.T) {
	sw := &fakeSwitch{t: t, transfers: map[string]string{}}
	server := httptest.NewServer(sw)
	defer server.Close()
	p := newTestProvider(t, server.URL, time.Now())

	t.Run("by transaction id", func(t *testing.T) {
		payment := testPayment("pay-1")
		tx := "SW-1"
		payment.TransactionID = &tx

		res, err := p.QueryStatus(context.Background(), payment, "BR-SW-1")
		require.NoError(t, err)
		assert.True(t, res.Found)
		assert.Equal(t, provider.StatusCompleted, res.Status)
	})

	t.Run("by idempotency key", func(t *testing.T) {
		res, err := p.QueryStatus(context.Background(), testPayment("known"), "")
		require.NoError(t, err)
		assert.True(t, res.Found)
		assert.Equal(t, "SW-9", res.TransactionID)
		assert.Equal(t, provider.StatusPending, res.Status)
	})

	t.Run("unknown transfer", func(t *testing.T) {
		res, err := p.QueryStatus(context.Background(), testPayment("never-sent"), "")
		require.NoError(t, err)
		assert.False(t, res.Found)
	})
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(config.EFTConfig{BaseURL: "http://switch"}, zap.NewNop())
	assert.Error(t, err)
}
