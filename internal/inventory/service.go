package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/gasflow-erp/gasflow/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	// WithTx runs fn inside one all-or-nothing unit of work. Nested calls
	// join the outer transaction.
	WithTx(ctx context.Context, fn func(context.Context) error) error
	// GetCellForUpdate locks the cell row for the duration of the
	// enclosing transaction. Returns ErrCellNotFound when absent.
	GetCellForUpdate(ctx context.Context, productID int64, bucket Bucket, state State) (StockCell, error)
	UpsertCell(ctx context.Context, cell StockCell) (StockCell, error)
	InsertTransaction(ctx context.Context, txn Transaction) (Transaction, error)
	ListCells(ctx context.Context, filter SnapshotFilter) ([]StockCell, error)
	ListTransactions(ctx context.Context, filter LogFilter) ([]Transaction, error)
	LoadLookups(ctx context.Context) (buckets, states []LookupRow, err error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts posted ledger transactions.
type MetricsPort interface {
	TransactionPosted(txnType string)
}

// Service owns the stock cells and the transaction log. All mutations of
// either go through its three primitives.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	metrics  MetricsPort
	registry *Registry
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort, registry *Registry) *Service {
	return &Service{repo: repo, audit: audit, metrics: metrics, registry: registry}
}

// Increase adds qty to the cell, creating it on first use, and appends one
// transaction carrying the to side.
func (s *Service) Increase(ctx context.Context, input MovementInput) (StockCell, error) {
	if err := validateMovement(input); err != nil {
		return StockCell{}, err
	}
	var cell StockCell
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		var err error
		cell, err = s.applyIncrease(ctx, input)
		return err
	})
	if err != nil {
		return StockCell{}, err
	}
	s.recordMovement(ctx, input.Type, input.ProductID, input.Qty, map[string]any{
		"to_bucket": string(input.Bucket),
		"to_state":  string(input.State),
		"reference": input.ReferenceID,
	})
	return cell, nil
}

// Decrease subtracts qty from the cell and appends one transaction carrying
// the from side. The stored quantity never goes negative.
func (s *Service) Decrease(ctx context.Context, input MovementInput) (StockCell, error) {
	if err := validateMovement(input); err != nil {
		return StockCell{}, err
	}
	var cell StockCell
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		var err error
		cell, err = s.applyDecrease(ctx, input)
		return err
	})
	if err != nil {
		return StockCell{}, err
	}
	s.recordMovement(ctx, input.Type, input.ProductID, input.Qty, map[string]any{
		"from_bucket": string(input.Bucket),
		"from_state":  string(input.State),
		"reference":   input.ReferenceID,
	})
	return cell, nil
}

// Move runs decrease(source) then increase(destination) and appends a third
// summary transaction carrying both sides, all in one unit of work. The log
// therefore holds three rows per move; report generators filter on txn_type
// and the populated sides, never raw row sums.
func (s *Service) Move(ctx context.Context, input MoveInput) (MoveResult, error) {
	out := MovementInput{
		ProductID:   input.ProductID,
		Bucket:      input.FromBucket,
		State:       input.FromState,
		Qty:         input.Qty,
		Type:        input.Type,
		ReferenceID: input.ReferenceID,
		Note:        input.Note,
	}
	in := MovementInput{
		ProductID:   input.ProductID,
		Bucket:      input.ToBucket,
		State:       input.ToState,
		Qty:         input.Qty,
		Type:        input.Type,
		ReferenceID: input.ReferenceID,
		Note:        input.Note,
	}
	if err := validateMovement(out); err != nil {
		return MoveResult{}, err
	}
	if err := validateMovement(in); err != nil {
		return MoveResult{}, err
	}
	if input.FromBucket == input.ToBucket && input.FromState == input.ToState {
		return MoveResult{}, fmt.Errorf("inventory: move source and destination must differ")
	}

	var result MoveResult
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		src, err := s.applyDecrease(ctx, out)
		if err != nil {
			return err
		}
		dst, err := s.applyIncrease(ctx, in)
		if err != nil {
			return err
		}
		_, err = s.repo.InsertTransaction(ctx, Transaction{
			ProductID:   input.ProductID,
			FromBucket:  input.FromBucket,
			FromState:   input.FromState,
			ToBucket:    input.ToBucket,
			ToState:     input.ToState,
			Qty:         input.Qty,
			Type:        input.Type,
			ReferenceID: input.ReferenceID,
			Note:        input.Note,
		})
		if err != nil {
			return err
		}
		result = MoveResult{Source: src, Destination: dst}
		return nil
	})
	if err != nil {
		return MoveResult{}, err
	}
	s.recordMovement(ctx, input.Type, input.ProductID, input.Qty, map[string]any{
		"from_bucket": string(input.FromBucket),
		"from_state":  string(input.FromState),
		"to_bucket":   string(input.ToBucket),
		"to_state":    string(input.ToState),
		"reference":   input.ReferenceID,
	})
	return result, nil
}

// Snapshot lists current stock cells.
func (s *Service) Snapshot(ctx context.Context, filter SnapshotFilter) ([]StockCell, error) {
	return s.repo.ListCells(ctx, filter)
}

// LogEntries lists transactions matching the filter.
func (s *Service) LogEntries(ctx context.Context, filter LogFilter) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

// applyIncrease mutates inside the ambient transaction.
func (s *Service) applyIncrease(ctx context.Context, input MovementInput) (StockCell, error) {
	cell, err := s.repo.GetCellForUpdate(ctx, input.ProductID, input.Bucket, input.State)
	if err != nil && !errors.Is(err, ErrCellNotFound) {
		return StockCell{}, err
	}
	if errors.Is(err, ErrCellNotFound) {
		cell = StockCell{ProductID: input.ProductID, Bucket: input.Bucket, State: input.State}
	}
	cell.Qty += input.Qty
	cell, err = s.repo.UpsertCell(ctx, cell)
	if err != nil {
		return StockCell{}, err
	}
	_, err = s.repo.InsertTransaction(ctx, Transaction{
		ProductID:   input.ProductID,
		ToBucket:    input.Bucket,
		ToState:     input.State,
		Qty:         input.Qty,
		Type:        input.Type,
		ReferenceID: input.ReferenceID,
		Note:        input.Note,
	})
	if err != nil {
		return StockCell{}, err
	}
	return cell, nil
}

// applyDecrease mutates inside the ambient transaction.
func (s *Service) applyDecrease(ctx context.Context, input MovementInput) (StockCell, error) {
	cell, err := s.repo.GetCellForUpdate(ctx, input.ProductID, input.Bucket, input.State)
	if err != nil {
		return StockCell{}, err
	}
	if input.Qty > cell.Qty {
		return StockCell{}, fmt.Errorf("%w: have %d, want %d in %s/%s",
			ErrInsufficientStock, cell.Qty, input.Qty, input.Bucket, input.State)
	}
	cell.Qty -= input.Qty
	cell, err = s.repo.UpsertCell(ctx, cell)
	if err != nil {
		return StockCell{}, err
	}
	_, err = s.repo.InsertTransaction(ctx, Transaction{
		ProductID:   input.ProductID,
		FromBucket:  input.Bucket,
		FromState:   input.State,
		Qty:         input.Qty,
		Type:        input.Type,
		ReferenceID: input.ReferenceID,
		Note:        input.Note,
	})
	if err != nil {
		return StockCell{}, err
	}
	return cell, nil
}

func (s *Service) recordMovement(ctx context.Context, txnType TxnType, productID, qty int64, meta map[string]any) {
	if s.metrics != nil {
		s.metrics.TransactionPosted(string(txnType))
	}
	if s.audit != nil {
		meta["qty"] = qty
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   fmt.Sprintf("inventory:%s", txnType),
			Entity:   "stock_transaction",
			EntityID: fmt.Sprintf("%s:%d", txnType, productID),
			Meta:     meta,
		})
	}
}

func validateMovement(input MovementInput) error {
	if input.Qty <= 0 {
		return ErrInvalidQuantity
	}
	if input.ProductID == 0 {
		return fmt.Errorf("inventory: product required")
	}
	if !input.Bucket.IsValid() {
		return fmt.Errorf("inventory: unknown bucket %q", input.Bucket)
	}
	if !input.State.IsValid() {
		return fmt.Errorf("inventory: unknown state %q", input.State)
	}
	if !input.Type.IsValid() {
		return fmt.Errorf("inventory: unknown transaction type %q", input.Type)
	}
	return nil
}
