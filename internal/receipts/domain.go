package receipts

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes supplier GRNs from purchase invoices. Both post stock
// the same way; only the ledger transaction type differs.
type Kind string

const (
	KindGRN     Kind = "GRN"
	KindInvoice Kind = "INVOICE"
)

// IsValid reports whether the kind is known.
func (k Kind) IsValid() bool {
	return k == KindGRN || k == KindInvoice
}

// Status is the receipt document lifecycle. POSTED documents are never
// re-opened.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusPosted Status = "POSTED"
)

// Receipt is a GRN or purchase-invoice header with its line items.
type Receipt struct {
	ID        int64         `json:"id"`
	DocUUID   uuid.UUID     `json:"doc_uuid"`
	Number    string        `json:"number"`
	Kind      Kind          `json:"kind"`
	Supplier  string        `json:"supplier"`
	Status    Status        `json:"status"`
	PostedAt  *time.Time    `json:"posted_at,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Items     []ReceiptItem `json:"items,omitempty"`
}

// ReceiptItem is one line of received counts for a product.
type ReceiptItem struct {
	ID                int64 `json:"id"`
	ReceiptID         int64 `json:"receipt_id"`
	ProductID         int64 `json:"product_id"`
	ReceivedFull      int64 `json:"received_full"`
	ReceivedEmpty     int64 `json:"received_empty"`
	ReceivedDefective int64 `json:"received_defective"`
}

// CreateReceiptRequest creates a DRAFT document with items.
type CreateReceiptRequest struct {
	Kind     Kind                   `json:"kind" validate:"required,oneof=GRN INVOICE"`
	Supplier string                 `json:"supplier" validate:"max=200"`
	Items    []CreateReceiptItemReq `json:"items" validate:"required,min=1,dive"`
}

// CreateReceiptItemReq is one line in a create request.
type CreateReceiptItemReq struct {
	ProductID         int64 `json:"product_id" validate:"required,gt=0"`
	ReceivedFull      int64 `json:"received_full" validate:"gte=0"`
	ReceivedEmpty     int64 `json:"received_empty" validate:"gte=0"`
	ReceivedDefective int64 `json:"received_defective" validate:"gte=0"`
}

// ListFilter narrows receipt listings.
type ListFilter struct {
	Kind   Kind
	Status Status
	Limit  int
	Offset int
}

var (
	// ErrNotFound indicates an unknown receipt id.
	ErrNotFound = errors.New("receipts: document not found")
	// ErrNotDraft indicates a posting attempt against a non-draft document.
	ErrNotDraft = errors.New("receipts: document is not in draft status")
	// ErrEmptyDocument indicates a posting attempt with zero line items.
	ErrEmptyDocument = errors.New("receipts: document has no line items")
)
