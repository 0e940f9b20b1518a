package usecase_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	"github.com/wekeepgrowing/grantpay/internal/infrastructure/crypto"
	"github.com/wekeepgrowing/grantpay/internal/usecase"
)

type memoryWebhookEvents struct {
	mu     sync.Mutex
	events map[string]*model.ProviderWebhookEvent
}

func newMemoryWebhookEvents() *memoryWebhookEvents {
	return &memoryWebhookEvents{events: make(map[string]*model.ProviderWebhookEvent)}
}

func (m *memoryWebhookEvents) Save(_ context.Context, event *model.ProviderWebhookEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[event.EventID]; ok {
		return false, nil
	}
	m.events[event.EventID] = event
	return true, nil
}

func (m *memoryWebhookEvents) GetEvent(_ context.Context, eventID string) (*model.ProviderWebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[eventID]
	if !ok {
		return nil, nil
	}
	cp := *event
	return &cp, nil
}

func (m *memoryWebhookEvents) MarkProcessed(_ context.Context, eventID string, status model.WebhookStatus, lastError *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event, ok := m.events[eventID]; ok {
		event.ProcessingStatus = status
		event.LastError = lastError
	}
	return nil
}

func (m *memoryWebhookEvents) status(eventID string) model.WebhookStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[eventID].ProcessingStatus
}

// flakyApplier fails the first failures calls before delegating.
type flakyApplier struct {
	next     usecase.StatusApplier
	failures int
}

func (a *flakyApplier) ApplyProviderStatus(ctx context.Context, update usecase.StatusUpdate) (*usecase.VerifyResult, error) {
	if a.failures > 0 {
		a.failures--
		return nil, errors.New("database unavailable")
	}
	return a.next.ApplyProviderStatus(ctx, update)
}

const webhookSecret = "whsec_test"

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookService_HandleStatusWebhook(t *testing.T) {
	ctx := context.Background()
	signer, err := crypto.NewHMACSigner(webhookSecret)
	require.NoError(t, err)

	setup := func(t *testing.T) (*paymentFixture, *memoryWebhookEvents, *usecase.WebhookService, string) {
		f := newPaymentFixture()
		result, err := f.service.SubmitPayment(ctx, eftRequest("G1", 1890))
		require.NoError(t, err)
		events := newMemoryWebhookEvents()
		return f, events, usecase.NewWebhookService(signer, events, f.service, testLogger()), result.PaymentID
	}

	t.Run("completed status is applied", func(t *testing.T) {
		f, events, svc, paymentID := setup(t)
		body := `{"event_id":"evt-1","payment_id":"` + paymentID + `","status":"completed","reference":"BANK-1"}`

		outcome, err := svc.HandleStatusWebhook(ctx, []byte(body), sign(body))
		require.NoError(t, err)

		assert.True(t, outcome.Applied)
		assert.False(t, outcome.Duplicate)
		assert.Equal(t, string(entity.PaymentStatusCompleted), outcome.Status)
		assert.Equal(t, entity.PaymentStatusCompleted, f.payments.get(paymentID).Status)
		assert.Equal(t, model.WebhookStatusCompleted, events.status("evt-1"))
	})

	t.Run("redelivery is acknowledged once", func(t *testing.T) {
		_, _, svc, paymentID := setup(t)
		body := `{"event_id":"evt-2","payment_id":"` + paymentID + `","status":"FAILED","reason":"account closed"}`

		_, err := svc.HandleStatusWebhook(ctx, []byte(body), sign(body))
		require.NoError(t, err)

		outcome, err := svc.HandleStatusWebhook(ctx, []byte(body), "sha256="+sign(body))
		require.NoError(t, err)
		assert.True(t, outcome.Duplicate)
		assert.False(t, outcome.Applied)
	})

	t.Run("failed event is processed again on redelivery", func(t *testing.T) {
		f, events, _, paymentID := setup(t)
		svc := usecase.NewWebhookService(signer, events, &flakyApplier{next: f.service, failures: 1}, testLogger())
		body := `{"event_id":"evt-6","payment_id":"` + paymentID + `","status":"COMPLETED"}`

		_, err := svc.HandleStatusWebhook(ctx, []byte(body), sign(body))
		require.Error(t, err)
		assert.Equal(t, model.WebhookStatusFailed, events.status("evt-6"))
		assert.Equal(t, entity.PaymentStatusSubmitted, f.payments.get(paymentID).Status)

		outcome, err := svc.HandleStatusWebhook(ctx, []byte(body), sign(body))
		require.NoError(t, err)
		assert.False(t, outcome.Duplicate)
		assert.True(t, outcome.Applied)
		assert.Equal(t, entity.PaymentStatusCompleted, f.payments.get(paymentID).Status)
		assert.Equal(t, model.WebhookStatusCompleted, events.status("evt-6"))

		outcome, err = svc.HandleStatusWebhook(ctx, []byte(body), sign(body))
		require.NoError(t, err)
		assert.True(t, outcome.Duplicate)
	})

	t.Run("invalid signature", func(t *testing.T) {
		_, events, svc, paymentID := setup(t)
		body := `{"event_id":"evt-3","payment_id":"` + paymentID + `","status":"COMPLETED"}`

		_, err := svc.HandleStatusWebhook(ctx, []byte(body), sign(body+" "))
		assert.ErrorIs(t, err, domainErrors.ErrInvalidSignature)

		_, err = svc.HandleStatusWebhook(ctx, []byte(body), "")
		assert.ErrorIs(t, err, domainErrors.ErrInvalidSignature)
		assert.Empty(t, events.events)
	})

	t.Run("non terminal status is ignored", func(t *testing.T) {
		f, events, svc, paymentID := setup(t)
		body := `{"event_id":"evt-4","payment_id":"` + paymentID + `","status":"PENDING"}`

		outcome, err := svc.HandleStatusWebhook(ctx, []byte(body), sign(body))
		require.NoError(t, err)
		assert.False(t, outcome.Applied)
		assert.Equal(t, model.WebhookStatusIgnored, events.status("evt-4"))
		assert.Equal(t, entity.PaymentStatusSubmitted, f.payments.get(paymentID).Status)
	})

	t.Run("unknown payment is recorded as failed", func(t *testing.T) {
		_, events, svc, _ := setup(t)
		body := `{"event_id":"evt-5","payment_id":"missing","status":"COMPLETED"}`

		_, err := svc.HandleStatusWebhook(ctx, []byte(body), sign(body))
		assert.ErrorIs(t, err, domainErrors.ErrNotFound)
		assert.Equal(t, model.WebhookStatusFailed, events.status("evt-5"))
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, _, svc, _ := setup(t)
		for _, body := range []string{`not json`, `{"payment_id":"x","status":"COMPLETED"}`, `{"event_id":"e","status":"COMPLETED"}`} {
			_, err := svc.HandleStatusWebhook(ctx, []byte(body), sign(body))
			assert.ErrorIs(t, err, domainErrors.ErrValidation, body)
		}
	})
}
