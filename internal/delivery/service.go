package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/gasflow-erp/gasflow/internal/inventory"
	"github.com/gasflow-erp/gasflow/internal/shared"
)

// RepositoryPort is the storage contract for delivery runs.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error
	CreateRun(ctx context.Context, run Run) (Run, error)
	GetRun(ctx context.Context, id int64) (Run, error)
	ListRuns(ctx context.Context, filter ListRunsFilter) ([]Run, error)
	// UpdateRunStatus flips status only when the current status matches
	// from; zero rows affected reports ErrRunNotOpen for callers racing on
	// the same run.
	UpdateRunStatus(ctx context.Context, id int64, from, to RunStatus) error
	NextRunNumber(ctx context.Context, date time.Time) (string, error)
	InsertLoad(ctx context.Context, load Load) (Load, error)
	ListLoads(ctx context.Context, runID int64) ([]Load, error)
	InsertSummary(ctx context.Context, summary Summary) (Summary, error)
	GetSummary(ctx context.Context, runID int64) (Summary, error)
	InsertRecord(ctx context.Context, record Record) (Record, error)
	ListRecords(ctx context.Context, runID int64) ([]Record, error)
}

// InventoryPort is the slice of the ledger the delivery flow drives.
type InventoryPort interface {
	Increase(ctx context.Context, in inventory.MovementInput) (inventory.StockCell, error)
	Decrease(ctx context.Context, in inventory.MovementInput) (inventory.StockCell, error)
	Move(ctx context.Context, in inventory.MoveInput) (inventory.MoveResult, error)
}

// AuditPort records who did what.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates delivery runs against the stock ledger.
type Service struct {
	repo  RepositoryPort
	stock InventoryPort
	audit AuditPort
}

// NewService creates a delivery Service.
func NewService(repo RepositoryPort, stock InventoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, stock: stock, audit: audit}
}

// CreateRun opens a run for a delivery person on a given date.
func (s *Service) CreateRun(ctx context.Context, req CreateRunRequest) (Run, error) {
	number, err := s.repo.NextRunNumber(ctx, req.Date)
	if err != nil {
		return Run{}, fmt.Errorf("next run number: %w", err)
	}
	run := Run{
		Number:  number,
		StaffID: req.StaffID,
		Date:    req.Date,
		Status:  RunStatusOpen,
	}
	created, err := s.repo.CreateRun(ctx, run)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	s.recordAudit(ctx, "delivery_run.create", created.ID, created.Number)
	return created, nil
}

// GetRun returns one run.
func (s *Service) GetRun(ctx context.Context, id int64) (Run, error) {
	return s.repo.GetRun(ctx, id)
}

// ListRuns returns runs matching the filter.
func (s *Service) ListRuns(ctx context.Context, filter ListRunsFilter) ([]Run, error) {
	return s.repo.ListRuns(ctx, filter)
}

// PostLoad hands stock to the delivery person. Every line moves full
// cylinders from the godown into the out-with-staff bucket, and the load
// document plus all ledger rows commit together.
func (s *Service) PostLoad(ctx context.Context, runID int64, req PostLoadRequest) (Load, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return Load{}, err
	}
	if !run.Status.CanPostLoad() {
		return Load{}, fmt.Errorf("run %s is %s: %w", run.Number, run.Status, ErrRunNotOpen)
	}
	if len(req.Items) == 0 {
		return Load{}, fmt.Errorf("load needs at least one line: %w", inventory.ErrInvalidQuantity)
	}

	var created Load
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		load := Load{RunID: run.ID, PostedAt: time.Now().UTC()}
		for _, item := range req.Items {
			load.Items = append(load.Items, LoadItem{ProductID: item.ProductID, Qty: item.Qty})
		}
		var txErr error
		created, txErr = s.repo.InsertLoad(ctx, load)
		if txErr != nil {
			return fmt.Errorf("insert load: %w", txErr)
		}
		for _, item := range req.Items {
			_, txErr = s.stock.Move(ctx, inventory.MoveInput{
				ProductID:   item.ProductID,
				Qty:         item.Qty,
				FromBucket:  inventory.BucketGodown,
				FromState:   inventory.StateFull,
				ToBucket:    inventory.BucketCMOut,
				ToState:     inventory.StateFull,
				Type:        inventory.TxnAssign,
				ReferenceID: run.Number,
			})
			if txErr != nil {
				return fmt.Errorf("assign product %d: %w", item.ProductID, txErr)
			}
		}
		return nil
	})
	if err != nil {
		return Load{}, err
	}

	s.recordAudit(ctx, "delivery_run.post_load", run.ID, run.Number)
	slog.InfoContext(ctx, "delivery load posted",
		slog.Int64("run_id", run.ID),
		slog.String("run_number", run.Number),
		slog.Int("lines", len(created.Items)))
	return created, nil
}

// PostSummary posts the run's aggregate totals and books every ledger
// consequence in one transaction: delivered fulls leave the out bucket,
// collected empties enter the godown, unsold fulls return, and defectives
// move to the defective bucket. The run flips OPEN to RETURNED as part of
// the same transaction, which also serves as the lock against a second
// summary racing in.
func (s *Service) PostSummary(ctx context.Context, runID int64, req PostSummaryRequest) (Summary, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return Summary{}, err
	}
	if !run.Status.CanPostSummary() {
		return Summary{}, fmt.Errorf("run %s is %s: %w", run.Number, run.Status, ErrRunNotOpen)
	}
	if _, err := s.repo.GetSummary(ctx, runID); err == nil {
		return Summary{}, fmt.Errorf("run %s: %w", run.Number, ErrSummaryExists)
	} else if !errors.Is(err, ErrNoSummary) {
		return Summary{}, err
	}
	if len(req.Items) == 0 {
		return Summary{}, fmt.Errorf("summary needs at least one line: %w", inventory.ErrInvalidQuantity)
	}

	var created Summary
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if txErr := s.repo.UpdateRunStatus(ctx, run.ID, RunStatusOpen, RunStatusReturned); txErr != nil {
			return txErr
		}
		summary := Summary{RunID: run.ID, PostedAt: time.Now().UTC()}
		for _, item := range req.Items {
			summary.Items = append(summary.Items, SummaryItem{
				ProductID:           item.ProductID,
				TotalFullDelivered:  item.TotalFullDelivered,
				TotalEmptyCollected: item.TotalEmptyCollected,
				TotalUnsoldFull:     item.TotalUnsoldFull,
				TotalDefective:      item.TotalDefective,
			})
		}
		var txErr error
		created, txErr = s.repo.InsertSummary(ctx, summary)
		if txErr != nil {
			return fmt.Errorf("insert summary: %w", txErr)
		}
		for _, item := range req.Items {
			if txErr = s.bookSummaryLine(ctx, run, item); txErr != nil {
				return fmt.Errorf("book product %d: %w", item.ProductID, txErr)
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	s.recordAudit(ctx, "delivery_run.post_summary", run.ID, run.Number)
	slog.InfoContext(ctx, "delivery summary posted",
		slog.Int64("run_id", run.ID),
		slog.String("run_number", run.Number),
		slog.Int("lines", len(created.Items)))
	return created, nil
}

func (s *Service) bookSummaryLine(ctx context.Context, run Run, item SummaryItemReq) error {
	if item.TotalFullDelivered > 0 {
		_, err := s.stock.Decrease(ctx, inventory.MovementInput{
			ProductID:   item.ProductID,
			Qty:         item.TotalFullDelivered,
			Bucket:      inventory.BucketCMOut,
			State:       inventory.StateFull,
			Type:        inventory.TxnDelivery,
			ReferenceID: run.Number,
		})
		if err != nil {
			return err
		}
	}
	if item.TotalEmptyCollected > 0 {
		_, err := s.stock.Increase(ctx, inventory.MovementInput{
			ProductID:   item.ProductID,
			Qty:         item.TotalEmptyCollected,
			Bucket:      inventory.BucketGodown,
			State:       inventory.StateEmpty,
			Type:        inventory.TxnReturn,
			ReferenceID: run.Number,
		})
		if err != nil {
			return err
		}
	}
	if item.TotalUnsoldFull > 0 {
		_, err := s.stock.Move(ctx, inventory.MoveInput{
			ProductID:   item.ProductID,
			Qty:         item.TotalUnsoldFull,
			FromBucket:  inventory.BucketCMOut,
			FromState:   inventory.StateFull,
			ToBucket:    inventory.BucketGodown,
			ToState:     inventory.StateFull,
			Type:        inventory.TxnReturn,
			ReferenceID: run.Number,
		})
		if err != nil {
			return err
		}
	}
	if item.TotalDefective > 0 {
		_, err := s.stock.Move(ctx, inventory.MoveInput{
			ProductID:   item.ProductID,
			Qty:         item.TotalDefective,
			FromBucket:  inventory.BucketCMOut,
			FromState:   inventory.StateFull,
			ToBucket:    inventory.BucketDefFull,
			ToState:     inventory.StateDefective,
			Type:        inventory.TxnAdjustment,
			ReferenceID: run.Number,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ListLoads returns a run's posted loads.
func (s *Service) ListLoads(ctx context.Context, runID int64) ([]Load, error) {
	if _, err := s.repo.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.repo.ListLoads(ctx, runID)
}

// CreateRecord adds one customer's delivery facts. Records are bookkeeping
// only and never touch the ledger.
func (s *Service) CreateRecord(ctx context.Context, runID int64, req CreateRecordRequest) (Record, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return Record{}, err
	}
	if !run.Status.CanAddRecord() {
		return Record{}, fmt.Errorf("run %s is %s: %w", run.Number, run.Status, ErrRunNotEditable)
	}
	if req.QtyFullDelivered == 0 && req.QtyEmptyCollected == 0 && req.QtyPendingEmpty == 0 {
		return Record{}, fmt.Errorf("record has no quantities: %w", inventory.ErrInvalidQuantity)
	}
	record := Record{
		RunID:             run.ID,
		ConsumerID:        req.ConsumerID,
		ProductID:         req.ProductID,
		QtyFullDelivered:  req.QtyFullDelivered,
		QtyEmptyCollected: req.QtyEmptyCollected,
		QtyPendingEmpty:   req.QtyPendingEmpty,
		Note:              req.Note,
	}
	created, err := s.repo.InsertRecord(ctx, record)
	if err != nil {
		return Record{}, fmt.Errorf("insert record: %w", err)
	}
	return created, nil
}

// ListRecords returns a run's itemized records.
func (s *Service) ListRecords(ctx context.Context, runID int64) ([]Record, error) {
	if _, err := s.repo.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.repo.ListRecords(ctx, runID)
}

// Reconcile compares the run's summary totals against the sum of its
// itemized records per product. With autoAdjust the per-product differences
// are booked as ledger adjustments referencing the run, and the run is
// marked RECONCILED; without it the report is informational.
func (s *Service) Reconcile(ctx context.Context, runID int64, autoAdjust bool) (ReconcileReport, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return ReconcileReport{}, err
	}
	summary, err := s.repo.GetSummary(ctx, runID)
	if err != nil {
		return ReconcileReport{}, err
	}
	records, err := s.repo.ListRecords(ctx, runID)
	if err != nil {
		return ReconcileReport{}, err
	}

	report := buildReconcileReport(run.ID, summary, records)

	if report.IsReconciled {
		if run.Status == RunStatusReturned {
			if err := s.repo.UpdateRunStatus(ctx, run.ID, RunStatusReturned, RunStatusReconciled); err != nil {
				return ReconcileReport{}, err
			}
		}
		return report, nil
	}

	if !autoAdjust {
		return report, nil
	}
	if run.Status != RunStatusReturned {
		return ReconcileReport{}, fmt.Errorf("run %s is %s: %w", run.Number, run.Status, ErrRunNotEditable)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		for _, row := range report.Rows {
			if txErr := s.bookReconcileRow(ctx, run, row); txErr != nil {
				return fmt.Errorf("adjust product %d: %w", row.ProductID, txErr)
			}
		}
		return s.repo.UpdateRunStatus(ctx, run.ID, RunStatusReturned, RunStatusReconciled)
	})
	if err != nil {
		return ReconcileReport{}, err
	}

	report.Adjusted = true
	s.recordAudit(ctx, "delivery_run.reconcile", run.ID, run.Number)
	slog.InfoContext(ctx, "delivery run reconciled with adjustments",
		slog.Int64("run_id", run.ID),
		slog.String("run_number", run.Number),
		slog.Int("rows", len(report.Rows)))
	return report, nil
}

// bookReconcileRow posts the adjustment for one product's difference. A
// positive full diff means the summary claimed more deliveries than the
// records show, so the surplus goes back into godown fulls; a negative diff
// takes the shortfall out. Empty diffs adjust godown empties the opposite
// way round.
func (s *Service) bookReconcileRow(ctx context.Context, run Run, row ReconcileRow) error {
	if row.DiffFull != 0 {
		in := inventory.MovementInput{
			ProductID:   row.ProductID,
			Qty:         abs(row.DiffFull),
			Bucket:      inventory.BucketGodown,
			State:       inventory.StateFull,
			Type:        inventory.TxnAdjustment,
			ReferenceID: run.Number,
			Note:        fmt.Sprintf("reconcile full: summary %d, records %d", row.SummaryFull, row.RecordsFull),
		}
		var err error
		if row.DiffFull > 0 {
			_, err = s.stock.Increase(ctx, in)
		} else {
			_, err = s.stock.Decrease(ctx, in)
		}
		if err != nil {
			return err
		}
	}
	if row.DiffEmpty != 0 {
		in := inventory.MovementInput{
			ProductID:   row.ProductID,
			Qty:         abs(row.DiffEmpty),
			Bucket:      inventory.BucketGodown,
			State:       inventory.StateEmpty,
			Type:        inventory.TxnAdjustment,
			ReferenceID: run.Number,
			Note:        fmt.Sprintf("reconcile empty: summary %d, records %d", row.SummaryEmpty, row.RecordsEmpty),
		}
		var err error
		if row.DiffEmpty > 0 {
			_, err = s.stock.Decrease(ctx, in)
		} else {
			_, err = s.stock.Increase(ctx, in)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// CancelRun cancels a run that has not been reconciled. Ledger rows already
// booked stay as they are; cancellation only closes the door on further
// activity.
func (s *Service) CancelRun(ctx context.Context, runID int64) (Run, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return Run{}, err
	}
	if !run.Status.CanCancel() {
		return Run{}, fmt.Errorf("run %s is %s: %w", run.Number, run.Status, ErrRunNotEditable)
	}
	if err := s.repo.UpdateRunStatus(ctx, run.ID, run.Status, RunStatusCancelled); err != nil {
		return Run{}, err
	}
	s.recordAudit(ctx, "delivery_run.cancel", run.ID, run.Number)
	return s.repo.GetRun(ctx, runID)
}

func buildReconcileReport(runID int64, summary Summary, records []Record) ReconcileReport {
	type tally struct {
		summaryFull, summaryEmpty int64
		recordsFull, recordsEmpty int64
	}
	byProduct := map[int64]*tally{}
	get := func(productID int64) *tally {
		t, ok := byProduct[productID]
		if !ok {
			t = &tally{}
			byProduct[productID] = t
		}
		return t
	}
	for _, item := range summary.Items {
		t := get(item.ProductID)
		t.summaryFull += item.TotalFullDelivered
		t.summaryEmpty += item.TotalEmptyCollected
	}
	for _, rec := range records {
		t := get(rec.ProductID)
		t.recordsFull += rec.QtyFullDelivered
		t.recordsEmpty += rec.QtyEmptyCollected
	}

	ids := make([]int64, 0, len(byProduct))
	for id := range byProduct {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	report := ReconcileReport{RunID: runID, IsReconciled: true}
	for _, id := range ids {
		t := byProduct[id]
		row := ReconcileRow{
			ProductID:    id,
			SummaryFull:  t.summaryFull,
			RecordsFull:  t.recordsFull,
			DiffFull:     t.summaryFull - t.recordsFull,
			SummaryEmpty: t.summaryEmpty,
			RecordsEmpty: t.recordsEmpty,
			DiffEmpty:    t.summaryEmpty - t.recordsEmpty,
		}
		if row.DiffFull != 0 || row.DiffEmpty != 0 {
			report.IsReconciled = false
		}
		report.Rows = append(report.Rows, row)
	}
	return report
}

func (s *Service) recordAudit(ctx context.Context, action string, runID int64, number string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "delivery_run",
		EntityID: number,
		Meta:     map[string]any{"run_id": runID},
	})
	if err != nil {
		slog.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
