package dto

// ReconcileRequest is the body of POST /api/v1/reconciliations.
type ReconcileRequest struct {
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Scope string `json:"scope" validate:"omitempty,oneof=eft card cash all"`
}
