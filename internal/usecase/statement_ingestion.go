package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	"github.com/wekeepgrowing/grantpay/internal/domain/repository"
)

var statementColumns = []string{"reference", "amount", "settlement_date", "method"}

// StatementIngestionService loads bank statement files into the settlement
// feed. A file is ingested at most once, keyed by its SHA-256.
type StatementIngestionService struct {
	settlements repository.SettlementRepository
	logger      *zap.Logger
}

// NewStatementIngestionService creates a new statement ingestion service
func NewStatementIngestionService(settlements repository.SettlementRepository, logger *zap.Logger) *StatementIngestionService {
	return &StatementIngestionService{
		settlements: settlements,
		logger:      logger,
	}
}

// Ingest parses a CSV statement with the columns
// reference,amount,settlement_date[,method]. The header row is optional.
func (s *StatementIngestionService) Ingest(ctx context.Context, fileName string, data []byte) (*model.SettlementStatement, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	exists, err := s.settlements.StatementExistsByHash(ctx, hash)
	if err != nil {
		s.logger.Error("Failed to check statement hash",
			zap.String("file", fileName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to check statement: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrDuplicateStatement, fileName)
	}

	statement := &model.SettlementStatement{
		ID:       uuid.NewString(),
		FileName: fileName,
		FileHash: hash,
	}
	records, err := parseStatement(statement.ID, data)
	if err != nil {
		return nil, err
	}
	statement.RecordCount = len(records)

	if err := s.settlements.SaveStatement(ctx, statement, records); err != nil {
		s.logger.Error("Failed to save statement",
			zap.String("file", fileName),
			zap.Int("records", len(records)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save statement: %w", err)
	}

	s.logger.Info("Statement ingested",
		zap.String("statement_id", statement.ID),
		zap.String("file", fileName),
		zap.Int("records", len(records)))
	return statement, nil
}

func parseStatement(statementID string, data []byte) ([]*model.SettlementRecord, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []*model.SettlementRecord
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domainErrors.NewValidationError("statement", fmt.Sprintf("line %d: %v", line, err))
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), statementColumns[0]) {
			continue
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}

		record, err := parseStatementRow(row)
		if err != nil {
			return nil, domainErrors.NewValidationError("statement", fmt.Sprintf("line %d: %v", line, err))
		}
		record.StatementID = statementID
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, domainErrors.NewValidationError("statement", "no settlement records")
	}
	return records, nil
}

func parseStatementRow(row []string) (*model.SettlementRecord, error) {
	if len(row) < 3 || len(row) > len(statementColumns) {
		return nil, fmt.Errorf("expected %d or %d columns, got %d", len(statementColumns)-1, len(statementColumns), len(row))
	}

	reference := strings.TrimSpace(row[0])
	if reference == "" {
		return nil, fmt.Errorf("reference is empty")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(row[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", row[1])
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(row[2]))
	if err != nil {
		return nil, fmt.Errorf("invalid settlement_date %q", row[2])
	}

	record := &model.SettlementRecord{
		Reference:      reference,
		Amount:         amount,
		SettlementDate: date,
	}
	if len(row) == 4 && strings.TrimSpace(row[3]) != "" {
		method, ok := entity.ParsePaymentMethod(row[3])
		if !ok {
			return nil, fmt.Errorf("invalid method %q", row[3])
		}
		record.Method = string(method)
	}
	return record, nil
}
