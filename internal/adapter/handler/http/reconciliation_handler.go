package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/domain/dto"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
)

// maxStatementSize bounds uploaded bank statements.
const maxStatementSize = 10 << 20

// Reconciler produces a reconciliation report for one day.
type Reconciler interface {
	Reconcile(ctx context.Context, date time.Time, scope string) (*model.ReconciliationReport, error)
}

// ReportQueries looks up stored reports.
type ReportQueries interface {
	GetReconciliationReport(ctx context.Context, reportID string) (*model.ReconciliationReport, error)
}

// StatementIngester loads settlement statements.
type StatementIngester interface {
	Ingest(ctx context.Context, fileName string, data []byte) (*model.SettlementStatement, error)
}

type ReconciliationHandler struct {
	reconciler Reconciler
	reports    ReportQueries
	statements StatementIngester
	logger     *zap.Logger
}

func NewReconciliationHandler(reconciler Reconciler, reports ReportQueries, statements StatementIngester, logger *zap.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciler: reconciler,
		reports:    reports,
		statements: statements,
		logger:     logger,
	}
}

// Reconcile handles POST /api/v1/reconciliations
func (h *ReconciliationHandler) Reconcile(c echo.Context) error {
	var req dto.ReconcileRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request format", nil)
	}
	if err := c.Validate(req); err != nil {
		return badRequest(c, "VALIDATION_FAILED", "Validation failed", err)
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return badRequest(c, "VALIDATION_FAILED", "date must be YYYY-MM-DD", nil)
	}
	scope := req.Scope
	if scope == "" {
		scope = "all"
	}

	report, err := h.reconciler.Reconcile(c.Request().Context(), date, scope)
	if err != nil {
		return respondError(c, h.logger, err, "Reconciliation failed", nil)
	}

	h.logger.Info("Reconciliation completed",
		zap.String("report_id", report.ID),
		zap.String("date", req.Date),
		zap.String("scope", scope),
		zap.Int("unmatched", report.UnmatchedCount))

	return c.JSON(http.StatusOK, report)
}

// GetReport handles GET /api/v1/reconciliations/:id
func (h *ReconciliationHandler) GetReport(c echo.Context) error {
	report, err := h.reports.GetReconciliationReport(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get reconciliation report", nil)
	}
	return c.JSON(http.StatusOK, report)
}

// IngestStatement handles POST /api/v1/settlements/statements. The CSV is
// taken from the multipart field "file", or from the raw body otherwise.
func (h *ReconciliationHandler) IngestStatement(c echo.Context) error {
	fileName, data, err := readStatement(c)
	if err != nil {
		h.logger.Warn("Failed to read statement upload", zap.Error(err))
		return badRequest(c, "INVALID_REQUEST", "Could not read statement file", nil)
	}
	if len(data) == 0 {
		return badRequest(c, "INVALID_REQUEST", "Statement file is empty", nil)
	}

	statement, err := h.statements.Ingest(c.Request().Context(), fileName, data)
	if err != nil {
		return respondError(c, h.logger, err, "Statement ingestion failed", nil)
	}

	h.logger.Info("Settlement statement ingested",
		zap.String("statement_id", statement.ID),
		zap.String("file_name", fileName),
		zap.Int("records", statement.RecordCount))

	return c.JSON(http.StatusCreated, statement)
}

func readStatement(c echo.Context) (string, []byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			return "", nil, err
		}
		defer src.Close()
		data, err := io.ReadAll(io.LimitReader(src, maxStatementSize))
		return file.Filename, data, err
	}

	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxStatementSize))
	name := c.QueryParam("file_name")
	if name == "" {
		name = "statement.csv"
	}
	return name, data, err
}
