package receipts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gasflow-erp/gasflow/internal/inventory"
	"github.com/gasflow-erp/gasflow/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error
	CreateReceipt(ctx context.Context, receipt Receipt) (Receipt, error)
	GetReceipt(ctx context.Context, id int64) (Receipt, error)
	ListReceipts(ctx context.Context, filter ListFilter) ([]Receipt, error)
	// MarkPosted flips DRAFT to POSTED and returns ErrNotDraft when the
	// document has already been posted.
	MarkPosted(ctx context.Context, id int64) error
	NextDocNumber(ctx context.Context, kind Kind) (string, error)
}

// InventoryPort is the slice of the inventory service used when posting.
type InventoryPort interface {
	Increase(ctx context.Context, input inventory.MovementInput) (inventory.StockCell, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns receipt documents through their DRAFT to POSTED lifecycle.
type Service struct {
	repo      RepositoryPort
	inventory InventoryPort
	audit     AuditPort
	logger    *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, inv InventoryPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, inventory: inv, audit: audit, logger: logger}
}

// Create stores a new DRAFT document with its items.
func (s *Service) Create(ctx context.Context, req CreateReceiptRequest) (Receipt, error) {
	if !req.Kind.IsValid() {
		return Receipt{}, fmt.Errorf("receipts: unknown kind %q", req.Kind)
	}
	if len(req.Items) == 0 {
		return Receipt{}, ErrEmptyDocument
	}
	for _, item := range req.Items {
		if item.ReceivedFull == 0 && item.ReceivedEmpty == 0 && item.ReceivedDefective == 0 {
			return Receipt{}, fmt.Errorf("receipts: item for product %d has no received counts", item.ProductID)
		}
	}

	number, err := s.repo.NextDocNumber(ctx, req.Kind)
	if err != nil {
		return Receipt{}, fmt.Errorf("receipts: next doc number: %w", err)
	}

	receipt := Receipt{
		DocUUID:  uuid.New(),
		Number:   number,
		Kind:     req.Kind,
		Supplier: req.Supplier,
		Status:   StatusDraft,
	}
	for _, item := range req.Items {
		receipt.Items = append(receipt.Items, ReceiptItem{
			ProductID:         item.ProductID,
			ReceivedFull:      item.ReceivedFull,
			ReceivedEmpty:     item.ReceivedEmpty,
			ReceivedDefective: item.ReceivedDefective,
		})
	}

	var created Receipt
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.repo.CreateReceipt(ctx, receipt)
		return err
	})
	if err != nil {
		return Receipt{}, err
	}
	return created, nil
}

// Get loads a receipt with items.
func (s *Service) Get(ctx context.Context, id int64) (Receipt, error) {
	return s.repo.GetReceipt(ctx, id)
}

// List returns receipts matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Receipt, error) {
	return s.repo.ListReceipts(ctx, filter)
}

// Post validates the draft and books every line into the godown. The status
// flip and all stock increases run in one unit of work: if any increase
// fails, the document stays DRAFT and no stock changed. Posting twice is
// rejected with ErrNotDraft, never re-applied.
func (s *Service) Post(ctx context.Context, id int64) (Receipt, error) {
	receipt, err := s.repo.GetReceipt(ctx, id)
	if err != nil {
		return Receipt{}, err
	}
	if receipt.Status != StatusDraft {
		return Receipt{}, ErrNotDraft
	}
	if len(receipt.Items) == 0 {
		return Receipt{}, ErrEmptyDocument
	}

	txnType := inventory.TxnGRN
	if receipt.Kind == KindInvoice {
		txnType = inventory.TxnInvoice
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		// MarkPosted first: the row update locks the header so a
		// concurrent post of the same document fails the status guard.
		if err := s.repo.MarkPosted(ctx, id); err != nil {
			return err
		}
		for _, item := range receipt.Items {
			if item.ReceivedFull > 0 {
				if _, err := s.inventory.Increase(ctx, inventory.MovementInput{
					ProductID:   item.ProductID,
					Bucket:      inventory.BucketGodown,
					State:       inventory.StateFull,
					Qty:         item.ReceivedFull,
					Type:        txnType,
					ReferenceID: receipt.Number,
				}); err != nil {
					return err
				}
			}
			if item.ReceivedEmpty > 0 {
				if _, err := s.inventory.Increase(ctx, inventory.MovementInput{
					ProductID:   item.ProductID,
					Bucket:      inventory.BucketGodown,
					State:       inventory.StateEmpty,
					Qty:         item.ReceivedEmpty,
					Type:        txnType,
					ReferenceID: receipt.Number,
				}); err != nil {
					return err
				}
			}
			if item.ReceivedDefective > 0 {
				if _, err := s.inventory.Increase(ctx, inventory.MovementInput{
					ProductID:   item.ProductID,
					Bucket:      inventory.BucketDefFull,
					State:       inventory.StateDefective,
					Qty:         item.ReceivedDefective,
					Type:        txnType,
					ReferenceID: receipt.Number,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "receipts:post",
			Entity:   "receipt",
			EntityID: receipt.Number,
			Meta:     map[string]any{"kind": string(receipt.Kind), "items": len(receipt.Items)},
		})
	}
	if s.logger != nil {
		s.logger.Info("receipt posted", slog.String("number", receipt.Number), slog.Int("items", len(receipt.Items)))
	}
	return s.repo.GetReceipt(ctx, id)
}
