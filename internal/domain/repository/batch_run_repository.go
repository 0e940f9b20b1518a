package repository

import (
	"context"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
)

// BatchRunRepository persists batch progress.
type BatchRunRepository interface {
	Create(ctx context.Context, run *model.BatchRun) error

	// GetByID returns nil, nil when the run does not exist.
	GetByID(ctx context.Context, id string) (*model.BatchRun, error)

	// UpdateProgress sets the processed count of an in-progress run.
	UpdateProgress(ctx context.Context, id string, processed int) error

	// Finalize records the final counts and status. errMsg is stored for
	// FAILED runs.
	Finalize(ctx context.Context, id string, status entity.BatchStatus, success, failure int, errMsg *string) error
}
