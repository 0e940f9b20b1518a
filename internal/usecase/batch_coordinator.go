package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	"github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

// PaymentSubmitter submits a single payment.
type PaymentSubmitter interface {
	SubmitPayment(ctx context.Context, req SubmitPaymentRequest) (*SubmitResult, error)
}

// BatchMeta describes who started a batch and why.
type BatchMeta struct {
	CreatedBy string
	Metadata  map[string]interface{}
}

// BatchItemResult is the outcome of one batch item.
type BatchItemResult struct {
	Index         int                  `json:"index"`
	PaymentID     string               `json:"payment_id,omitempty"`
	Success       bool                 `json:"success"`
	Status        entity.PaymentStatus `json:"status,omitempty"`
	TransactionID string               `json:"transaction_id,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// BatchResult summarizes a processed batch.
type BatchResult struct {
	BatchID       string             `json:"batch_id"`
	Status        entity.BatchStatus `json:"status"`
	TotalPayments int                `json:"total_payments"`
	SuccessCount  int                `json:"success_count"`
	FailureCount  int                `json:"failure_count"`
	Results       []BatchItemResult  `json:"results"`
}

// BatchCoordinator submits payments in sequential chunks. Items inside a
// chunk run concurrently and never affect each other.
type BatchCoordinator struct {
	submitter PaymentSubmitter
	runs      repository.BatchRunRepository
	chunkSize int
	logger    *zap.Logger
}

// NewBatchCoordinator creates a new batch coordinator
func NewBatchCoordinator(submitter PaymentSubmitter, runs repository.BatchRunRepository, chunkSize int, logger *zap.Logger) *BatchCoordinator {
	if chunkSize <= 0 {
		chunkSize = 100
	}
	return &BatchCoordinator{
		submitter: submitter,
		runs:      runs,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// ProcessBatch records a batch run, submits every item and finalizes the run.
// If the coordinator fails part way, the run is marked FAILED and the partial
// result is returned with the error; processed payments keep their state.
func (c *BatchCoordinator) ProcessBatch(ctx context.Context, items []SubmitPaymentRequest, meta BatchMeta) (*BatchResult, error) {
	ctx, span := tracer.Start(ctx, "BatchCoordinator.ProcessBatch", trace.WithAttributes(
		attribute.Int("batch.size", len(items)),
	))
	defer span.End()

	if len(items) == 0 {
		err := domainErrors.NewValidationError("payments", "batch must contain at least one payment")
		recordError(span, err)
		return nil, err
	}

	run := &model.BatchRun{
		ID:        uuid.NewString(),
		Requested: len(items),
		Status:    entity.BatchStatusInProgress,
		Metadata:  meta.Metadata,
		CreatedBy: meta.CreatedBy,
	}
	if err := c.runs.Create(ctx, run); err != nil {
		c.logger.Error("Failed to create batch run", zap.Int("size", len(items)), zap.Error(err))
		recordError(span, err)
		return nil, fmt.Errorf("failed to create batch run: %w", err)
	}
	span.SetAttributes(attribute.String("batch.id", run.ID))

	c.logger.Info("Batch started",
		zap.String("batch_id", run.ID),
		zap.Int("size", len(items)),
		zap.Int("chunk_size", c.chunkSize))

	result := &BatchResult{
		BatchID:       run.ID,
		Status:        entity.BatchStatusInProgress,
		TotalPayments: len(items),
		Results:       make([]BatchItemResult, 0, len(items)),
	}

	processed := 0
	for start := 0; start < len(items); start += c.chunkSize {
		if err := ctx.Err(); err != nil {
			return c.abort(ctx, result, err)
		}

		end := start + c.chunkSize
		if end > len(items) {
			end = len(items)
		}

		chunk := c.processChunk(ctx, run.ID, items[start:end], start)
		for _, item := range chunk {
			if item.Success {
				result.SuccessCount++
			} else {
				result.FailureCount++
			}
		}
		result.Results = append(result.Results, chunk...)
		processed += len(chunk)

		if err := c.runs.UpdateProgress(ctx, run.ID, processed); err != nil {
			return c.abort(ctx, result, fmt.Errorf("failed to update batch progress: %w", err))
		}

		c.logger.Debug("Batch chunk processed",
			zap.String("batch_id", run.ID),
			zap.Int("processed", processed),
			zap.Int("total", len(items)))
	}

	if err := c.runs.Finalize(ctx, run.ID, entity.BatchStatusCompleted, result.SuccessCount, result.FailureCount, nil); err != nil {
		return c.abort(ctx, result, fmt.Errorf("failed to finalize batch run: %w", err))
	}
	result.Status = entity.BatchStatusCompleted

	c.logger.Info("Batch completed",
		zap.String("batch_id", run.ID),
		zap.Int("success", result.SuccessCount),
		zap.Int("failure", result.FailureCount))

	span.SetAttributes(
		attribute.Int("batch.success", result.SuccessCount),
		attribute.Int("batch.failure", result.FailureCount),
	)
	return result, nil
}

// processChunk submits items concurrently and waits for all of them.
func (c *BatchCoordinator) processChunk(ctx context.Context, batchID string, items []SubmitPaymentRequest, offset int) []BatchItemResult {
	results := make([]BatchItemResult, len(items))
	// Started payments finish even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group
	for i := range items {
		i := i
		g.Go(func() error {
			req := items[i]
			req.BatchID = &batchID

			item := BatchItemResult{Index: offset + i}
			res, err := c.submitter.SubmitPayment(ctx, req)
			if res != nil {
				item.PaymentID = res.PaymentID
				item.Status = res.Status
				item.TransactionID = res.TransactionID
			}
			if err != nil {
				item.Error = err.Error()
			} else {
				item.Success = true
			}
			results[i] = item
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (c *BatchCoordinator) abort(ctx context.Context, result *BatchResult, cause error) (*BatchResult, error) {
	c.logger.Error("Batch failed",
		zap.String("batch_id", result.BatchID),
		zap.Int("processed", len(result.Results)),
		zap.Error(cause))

	message := cause.Error()
	finalizeCtx := context.WithoutCancel(ctx)
	if err := c.runs.Finalize(finalizeCtx, result.BatchID, entity.BatchStatusFailed, result.SuccessCount, result.FailureCount, &message); err != nil {
		c.logger.Error("Failed to mark batch run as failed",
			zap.String("batch_id", result.BatchID),
			zap.Error(err))
		cause = errors.Join(cause, err)
	}

	result.Status = entity.BatchStatusFailed
	trace.SpanFromContext(ctx).RecordError(cause)
	return result, cause
}
