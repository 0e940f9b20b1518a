package entity

// BatchStatus is the overall status of a batch run.
type BatchStatus string

const (
	BatchStatusInProgress BatchStatus = "IN_PROGRESS"
	BatchStatusCompleted  BatchStatus = "COMPLETED"
	BatchStatusFailed     BatchStatus = "FAILED"
)

// DiscrepancyKind classifies a reconciliation finding.
type DiscrepancyKind string

const (
	DiscrepancyAmountMismatch DiscrepancyKind = "AMOUNT_MISMATCH"
	DiscrepancyNoBankMatch    DiscrepancyKind = "NO_BANK_MATCH"
)

// ReconciliationScopeAll reconciles every method.
const ReconciliationScopeAll = "all"
