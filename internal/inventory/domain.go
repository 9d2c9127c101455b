package inventory

import (
	"errors"
	"time"
)

// Bucket identifies a physical or organisational stock location.
type Bucket string

const (
	// BucketGodown is the main warehouse.
	BucketGodown Bucket = "GODOWN"
	// BucketCMOut is stock currently out with delivery staff.
	BucketCMOut Bucket = "CM_OUT"
	// BucketDefFull holds defective full cylinders.
	BucketDefFull Bucket = "DEF_FULL"
	// BucketDefEmpty holds defective empty cylinders.
	BucketDefEmpty Bucket = "DEF_EMPTY"
)

// IsValid reports whether the bucket is a known location.
func (b Bucket) IsValid() bool {
	switch b {
	case BucketGodown, BucketCMOut, BucketDefFull, BucketDefEmpty:
		return true
	default:
		return false
	}
}

// State describes the condition of units within a bucket.
type State string

const (
	StateFull      State = "FULL"
	StateEmpty     State = "EMPTY"
	StateDefective State = "DEFECTIVE"
)

// IsValid reports whether the state is a known condition.
func (s State) IsValid() bool {
	switch s {
	case StateFull, StateEmpty, StateDefective:
		return true
	default:
		return false
	}
}

// TxnType enumerates ledger transaction types.
type TxnType string

const (
	// TxnOpening seeds initial stock.
	TxnOpening TxnType = "OPENING"
	// TxnGRN records goods received against a GRN document.
	TxnGRN TxnType = "GRN"
	// TxnInvoice records goods received against a purchase invoice.
	TxnInvoice TxnType = "INVOICE"
	// TxnAssign moves stock out to delivery staff.
	TxnAssign TxnType = "ASSIGN"
	// TxnDelivery consumes stock delivered to customers.
	TxnDelivery TxnType = "DELIVERY"
	// TxnReturn brings empties or unsold fulls back to the godown.
	TxnReturn TxnType = "RETURN"
	// TxnAdjustment covers defective moves and reconciliation fixes.
	TxnAdjustment TxnType = "ADJUSTMENT"
)

// IsValid reports whether the transaction type is known.
func (t TxnType) IsValid() bool {
	switch t {
	case TxnOpening, TxnGRN, TxnInvoice, TxnAssign, TxnDelivery, TxnReturn, TxnAdjustment:
		return true
	default:
		return false
	}
}

// StockCell is the current quantity for one (product, bucket, state) triple.
// It is a materialized cache over the transaction log; the log is the source
// of truth.
type StockCell struct {
	ID        int64
	ProductID int64
	Bucket    Bucket
	State     State
	Qty       int64
	UpdatedAt time.Time
}

// Transaction is one immutable ledger entry. A pure increase carries only the
// to side, a pure decrease only the from side; a move summary row carries
// both.
type Transaction struct {
	ID          int64
	ProductID   int64
	FromBucket  Bucket
	FromState   State
	ToBucket    Bucket
	ToState     State
	Qty         int64
	Type        TxnType
	ReferenceID string
	Note        string
	CreatedAt   time.Time
}

// IsIncrease reports whether the row is a pure increase leg.
func (t Transaction) IsIncrease() bool {
	return t.ToBucket != "" && t.FromBucket == ""
}

// IsDecrease reports whether the row is a pure decrease leg.
func (t Transaction) IsDecrease() bool {
	return t.FromBucket != "" && t.ToBucket == ""
}

// IsMoveSummary reports whether the row is the combined summary written by a
// move, carrying both sides.
func (t Transaction) IsMoveSummary() bool {
	return t.FromBucket != "" && t.ToBucket != ""
}

// MovementInput describes one increase or decrease.
type MovementInput struct {
	ProductID   int64
	Bucket      Bucket
	State       State
	Qty         int64
	Type        TxnType
	ReferenceID string
	Note        string
}

// MoveInput describes a composite movement between two cells.
type MoveInput struct {
	ProductID   int64
	FromBucket  Bucket
	FromState   State
	ToBucket    Bucket
	ToState     State
	Qty         int64
	Type        TxnType
	ReferenceID string
	Note        string
}

// MoveResult carries the updated source and destination cells.
type MoveResult struct {
	Source      StockCell
	Destination StockCell
}

// SnapshotFilter narrows current-cell listings.
type SnapshotFilter struct {
	ProductID int64
	Bucket    Bucket
}

// LogFilter narrows transaction-log listings. From/To bound created_at
// inclusively on From and exclusively on To.
type LogFilter struct {
	ProductID int64
	Types     []TxnType
	From      time.Time
	To        time.Time
}

// ErrInvalidQuantity indicates a non-positive quantity.
var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")

// ErrCellNotFound indicates a decrease against a cell that was never created.
var ErrCellNotFound = errors.New("inventory: stock cell not found")

// ErrInsufficientStock indicates a decrease exceeding the cell balance.
var ErrInsufficientStock = errors.New("inventory: insufficient stock")

// ErrMissingLookup indicates a required bucket/state code absent from the
// lookup tables. This is a deployment error and fatal at startup.
var ErrMissingLookup = errors.New("inventory: missing lookup code")
