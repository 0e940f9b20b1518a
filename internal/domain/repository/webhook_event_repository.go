package repository

import (
	"context"

	"github.com/wekeepgrowing/grantpay/internal/domain/model"
)

// WebhookEventRepository stores provider callbacks once per event id.
type WebhookEventRepository interface {
	// Save inserts event and reports false when the event id was already stored.
	Save(ctx context.Context, event *model.ProviderWebhookEvent) (bool, error)

	// GetEvent returns the stored event, or nil when the id is unknown.
	GetEvent(ctx context.Context, eventID string) (*model.ProviderWebhookEvent, error)

	// MarkProcessed sets the processing outcome of an event.
	MarkProcessed(ctx context.Context, eventID string, status model.WebhookStatus, lastError *string) error
}
