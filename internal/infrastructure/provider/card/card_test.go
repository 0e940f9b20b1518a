package card

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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
)

// fakeStripe answers the PaymentIntent endpoints and replays responses for a
// repeated Idempotency-Key like the real API.
type fakeStripe struct {
	t       *testing.T
	mu      sync.Mutex
	intents map[string]string
	created int
	status  string
}

func (f *fakeStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/payment_intents":
		require.NoError(f.t, r.ParseForm())
		key := r.Header.Get("Idempotency-Key")
		assert.Equal(f.t, key, r.PostForm.Get("metadata[payment_id]"))
		assert.Equal(f.t, "218050", r.PostForm.Get("amount"))
		assert.Equal(f.t, "zar", r.PostForm.Get("currency"))
		assert.Equal(f.t, "pm_card_visa", r.PostForm.Get("payment_method"))
		assert.Equal(f.t, "true", r.PostForm.Get("confirm"))

		if f.status == "declined" {
			w.WriteHeader(http.StatusPaymentRequired)
			w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
			return
		}

		id, ok := f.intents[key]
		if !ok {
			f.created++
			id = fmt.Sprintf("pi_%d", f.created)
			f.intents[key] = id
		}
		writeIntent(w, id, f.status)
	case r.Method == http.MethodGet && r.URL.Path == "/v1/payment_intents/pi_1":
		writeIntent(w, "pi_1", "succeeded")
	case r.Method == http.MethodGet && r.URL.Path == "/v1/payment_intents/search":
		assert.Contains(f.t, r.URL.Query().Get("query"), "metadata['payment_id']")
		data := []interface{}{}
		if r.URL.Query().Get("query") == "metadata['payment_id']:'landed'" {
			data = append(data, intentBody("pi_7", "processing"))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"object":   "search_result",
			"url":      "/v1/payment_intents/search",
			"has_more": false,
			"data":     data,
		})
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such payment_intent"}}`))
	}
}

func intentBody(id, status string) map[string]interface{} {
	return map[string]interface{}{
		"id":            id,
		"object":        "payment_intent",
		"status":        status,
		"amount":        218050,
		"currency":      "zar",
		"latest_charge": "ch_" + id,
	}
}

func writeIntent(w http.ResponseWriter, id, status string) {
	json.NewEncoder(w).Encode(intentBody(id, status))
}

func newTestProvider(t *testing.T, url string, now time.Time) *Provider {
	t.Helper()
	p, err := New(config.CardConfig{
		SecretKey:         "sk_test_123",
		BaseURL:           url,
		MaxNetworkRetries: 0,
		Timeout:           5 * time.Second,
	}, zap.NewNop(), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return p
}

func cardPayment(id string) *model.Payment {
	return &model.Payment{
		ID:        id,
		GrantID:   "G1",
		GrantType: "CHILD_SUPPORT",
		Amount:    decimal.RequireFromString("2180.50"),
		Currency:  "ZAR",
		Method:    entity.PaymentMethodCard,
		CardToken: "pm_card_visa",
		Status:    entity.PaymentStatusPending,
	}
}

func TestDispatch_IdempotencyKeyReuse(t *testing.T) {
	fake := &fakeStripe{t: t, intents: map[string]string{}, status: "processing"}
	server := httptest.NewServer(fake)
	defer server.Close()

	sunday := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	p := newTestProvider(t, server.URL, sunday)

	first, err := p.Dispatch(context.Background(), cardPayment("pay-1"))
	require.NoError(t, err)
	second, err := p.Dispatch(context.Background(), cardPayment("pay-1"))
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID)
	fake.mu.Lock()
	assert.Equal(t, 1, fake.created)
	fake.mu.Unlock()
	assert.Equal(t, provider.StatusAccepted, first.Status)
	assert.Equal(t, "ch_pi_1", first.ProviderReference)
	assert.Equal(t, "2024-03-12", first.EstimatedSettlement)
}

func TestDispatch_Failures(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		server := httptest.NewServer(&fakeStripe{t: t, intents: map[string]string{}, status: "declined"})
		defer server.Close()

		_, err := newTestProvider(t, server.URL, time.Now()).Dispatch(context.Background(), cardPayment("pay-2"))
		var providerErr *domainErrors.ProviderError
		require.True(t, errors.As(err, &providerErr))
		assert.Equal(t, "card_declined", providerErr.Code)
		assert.Equal(t, "Your card was declined.", providerErr.Message)
	})

	t.Run("requires payment method", func(t *testing.T) {
		server := httptest.NewServer(&fakeStripe{t: t, intents: map[string]string{}, status: "requires_payment_method"})
		defer server.Close()

		_, err := newTestProvider(t, server.URL, time.Now()).Dispatch(context.Background(), cardPayment("pay-3"))
		assert.ErrorIs(t, err, domainErrors.ErrProvider)
	})

	t.Run("missing token", func(t *testing.T) {
		p := newTestProvider(t, "http://127.0.0.1:1", time.Now())
		payment := cardPayment("pay-4")
		payment.CardToken = ""
		_, err := p.Dispatch(context.Background(), payment)
		assert.ErrorIs(t, err, domainErrors.ErrValidation)
	})
}

func TestQueryStatus(t *testing.T) {
	server := httptest.NewServer(&fakeStripe{t: t, intents: map[string]string{}})
	defer server.Close()
	p := newTestProvider(t, server.URL, time.Now())
	ctx := context.Background()

	t.Run("known intent", func(t *testing.T) {
		payment := cardPayment("pay-1")
		tx := "pi_1"
		payment.TransactionID = &tx
		res, err := p.QueryStatus(ctx, payment, "")
		require.NoError(t, err)
		assert.True(t, res.Found)
		assert.Equal(t, provider.StatusCompleted, res.Status)
	})

	t.Run("missing intent", func(t *testing.T) {
		payment := cardPayment("pay-1")
		tx := "pi_gone"
		payment.TransactionID = &tx
		res, err := p.QueryStatus(ctx, payment, "")
		require.NoError(t, err)
		assert.False(t, res.Found)
	})

	t.Run("search by payment id", func(t *testing.T) {
		res, err := p.QueryStatus(ctx, cardPayment("landed"), "")
		require.NoError(t, err)
		assert.True(t, res.Found)
		assert.Equal(t, "pi_7", res.TransactionID)

		res, err = p.QueryStatus(ctx, cardPayment("never"), "")
		require.NoError(t, err)
		assert.False(t, res.Found)
	})
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(218050), toMinorUnits(decimal.RequireFromString("2180.50")))
	assert.Equal(t, int64(1), toMinorUnits(decimal.RequireFromString("0.005")))
}
