package delivery

import (
	"errors"
	"time"
)

// RunStatus represents the lifecycle of a delivery run.
type RunStatus string

const (
	// RunStatusOpen accepts loads, a summary and records.
	RunStatusOpen RunStatus = "OPEN"
	// RunStatusReturned is set once the summary is posted; records may
	// still be added.
	RunStatusReturned RunStatus = "RETURNED"
	// RunStatusReconciled is terminal.
	RunStatusReconciled RunStatus = "RECONCILED"
	// RunStatusCancelled may be reached from any state before RECONCILED.
	RunStatusCancelled RunStatus = "CANCELLED"
)

// IsValid checks if the status is valid.
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusOpen, RunStatusReturned, RunStatusReconciled, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// CanPostLoad checks if stock may still be handed out on this run.
func (s RunStatus) CanPostLoad() bool {
	return s == RunStatusOpen
}

// CanPostSummary checks if the aggregate summary may be posted.
func (s RunStatus) CanPostSummary() bool {
	return s == RunStatusOpen
}

// CanAddRecord checks if itemized delivery records may be added.
func (s RunStatus) CanAddRecord() bool {
	return s == RunStatusOpen || s == RunStatusReturned
}

// CanCancel checks if the run may still be cancelled.
func (s RunStatus) CanCancel() bool {
	return s == RunStatusOpen || s == RunStatusReturned
}

// Run is one delivery person's day.
type Run struct {
	ID        int64     `json:"id"`
	Number    string    `json:"number"`
	StaffID   int64     `json:"staff_id"`
	Date      time.Time `json:"date"`
	Status    RunStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Load is stock handed to the delivery person against a run.
type Load struct {
	ID       int64      `json:"id"`
	RunID    int64      `json:"run_id"`
	PostedAt time.Time  `json:"posted_at"`
	Items    []LoadItem `json:"items"`
}

// LoadItem is one product line of a load.
type LoadItem struct {
	ID        int64 `json:"id"`
	LoadID    int64 `json:"load_id"`
	ProductID int64 `json:"product_id"`
	Qty       int64 `json:"qty"`
}

// Summary carries the run's aggregate totals per product.
type Summary struct {
	ID       int64         `json:"id"`
	RunID    int64         `json:"run_id"`
	PostedAt time.Time     `json:"posted_at"`
	Items    []SummaryItem `json:"items"`
}

// SummaryItem is one product's aggregate totals.
type SummaryItem struct {
	ID                  int64 `json:"id"`
	SummaryID           int64 `json:"summary_id"`
	ProductID           int64 `json:"product_id"`
	TotalFullDelivered  int64 `json:"total_full_delivered"`
	TotalEmptyCollected int64 `json:"total_empty_collected"`
	TotalUnsoldFull     int64 `json:"total_unsold_full"`
	TotalDefective      int64 `json:"total_defective"`
}

// Record captures one customer's delivery facts. Records never touch the
// ledger; they exist to cross-check the summary.
type Record struct {
	ID                int64     `json:"id"`
	RunID             int64     `json:"run_id"`
	ConsumerID        int64     `json:"consumer_id"`
	ProductID         int64     `json:"product_id"`
	QtyFullDelivered  int64     `json:"qty_full_delivered"`
	QtyEmptyCollected int64     `json:"qty_empty_collected"`
	QtyPendingEmpty   int64     `json:"qty_pending_empty"`
	Note              string    `json:"note"`
	CreatedAt         time.Time `json:"created_at"`
}

// ReconcileRow is the per-product comparison of summary totals against the
// itemized records.
type ReconcileRow struct {
	ProductID    int64 `json:"product_id"`
	SummaryFull  int64 `json:"summary_full"`
	RecordsFull  int64 `json:"records_full"`
	DiffFull     int64 `json:"diff_full"`
	SummaryEmpty int64 `json:"summary_empty"`
	RecordsEmpty int64 `json:"records_empty"`
	DiffEmpty    int64 `json:"diff_empty"`
}

// ReconcileReport is the outcome of reconciling a run.
type ReconcileReport struct {
	RunID        int64          `json:"run_id"`
	IsReconciled bool           `json:"is_reconciled"`
	Adjusted     bool           `json:"adjusted"`
	Rows         []ReconcileRow `json:"rows"`
}

// CreateRunRequest opens a new run.
type CreateRunRequest struct {
	StaffID int64     `json:"staff_id" validate:"required,gt=0"`
	Date    time.Time `json:"date" validate:"required"`
}

// PostLoadRequest hands stock to the delivery person.
type PostLoadRequest struct {
	Items []LoadItemReq `json:"items" validate:"required,min=1,dive"`
}

// LoadItemReq is one product line in a load request.
type LoadItemReq struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Qty       int64 `json:"qty" validate:"required,gt=0"`
}

// PostSummaryRequest posts the run's aggregate totals.
type PostSummaryRequest struct {
	Items []SummaryItemReq `json:"items" validate:"required,min=1,dive"`
}

// SummaryItemReq is one product line in a summary request.
type SummaryItemReq struct {
	ProductID           int64 `json:"product_id" validate:"required,gt=0"`
	TotalFullDelivered  int64 `json:"total_full_delivered" validate:"gte=0"`
	TotalEmptyCollected int64 `json:"total_empty_collected" validate:"gte=0"`
	TotalUnsoldFull     int64 `json:"total_unsold_full" validate:"gte=0"`
	TotalDefective      int64 `json:"total_defective" validate:"gte=0"`
}

// CreateRecordRequest adds one customer's delivery facts.
type CreateRecordRequest struct {
	ConsumerID        int64  `json:"consumer_id" validate:"required,gt=0"`
	ProductID         int64  `json:"product_id" validate:"required,gt=0"`
	QtyFullDelivered  int64  `json:"qty_full_delivered" validate:"gte=0"`
	QtyEmptyCollected int64  `json:"qty_empty_collected" validate:"gte=0"`
	QtyPendingEmpty   int64  `json:"qty_pending_empty" validate:"gte=0"`
	Note              string `json:"note" validate:"max=500"`
}

// ListRunsFilter narrows run listings.
type ListRunsFilter struct {
	StaffID int64
	Status  RunStatus
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}

var (
	// ErrRunNotFound indicates an unknown run id.
	ErrRunNotFound = errors.New("delivery: run not found")
	// ErrRunNotOpen indicates a load or summary posted against a run that
	// is no longer OPEN.
	ErrRunNotOpen = errors.New("delivery: run is not open")
	// ErrRunNotEditable indicates a record added or cancel attempted after
	// the run left OPEN/RETURNED.
	ErrRunNotEditable = errors.New("delivery: run is not editable")
	// ErrNoSummary indicates reconciliation before a summary was posted.
	ErrNoSummary = errors.New("delivery: run has no posted summary")
	// ErrSummaryExists indicates a second summary post for the same run.
	ErrSummaryExists = errors.New("delivery: run already has a summary")
)
