package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gasflow-erp/gasflow/internal/inventory"
)

// InventoryPort is the slice of the ledger the report builders read.
type InventoryPort interface {
	Snapshot(ctx context.Context, filter inventory.SnapshotFilter) ([]inventory.StockCell, error)
	LogEntries(ctx context.Context, filter inventory.LogFilter) ([]inventory.Transaction, error)
}

// CatalogPort supplies product display names.
type CatalogPort interface {
	ProductNames(ctx context.Context) (map[int64]string, error)
}

// Service builds the operational reports.
type Service struct {
	stock   InventoryPort
	catalog CatalogPort
}

// NewService creates a reports Service.
func NewService(stock InventoryPort, catalog CatalogPort) *Service {
	return &Service{stock: stock, catalog: catalog}
}

// DSR builds the daily sales register for one date. Opening and closing
// columns both reflect the live stock cells, matching the register the
// depots actually run off; only the movement columns are bounded by the
// date.
func (s *Service) DSR(ctx context.Context, date time.Time) (DSRReport, error) {
	day := date.Truncate(24 * time.Hour)
	txns, err := s.stock.LogEntries(ctx, inventory.LogFilter{
		From: day,
		To:   day.Add(24 * time.Hour),
	})
	if err != nil {
		return DSRReport{}, fmt.Errorf("log entries: %w", err)
	}
	cells, err := s.stock.Snapshot(ctx, inventory.SnapshotFilter{})
	if err != nil {
		return DSRReport{}, fmt.Errorf("snapshot: %w", err)
	}
	names, err := s.catalog.ProductNames(ctx)
	if err != nil {
		return DSRReport{}, fmt.Errorf("product names: %w", err)
	}

	movements := tallyMovements(txns)
	positions := positionsFromCells(cells)

	report := DSRReport{Date: day}
	for _, id := range unionProductIDs(movements, positions) {
		row := DSRRow{
			ProductID:   id,
			ProductName: names[id],
			Opening:     positions[id],
			Closing:     positions[id],
		}
		if m, ok := movements[id]; ok {
			row.Movement = *m
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

// MonthlyClosing builds one row per product per day of the month. Days with
// no movement still appear so the register reads continuously.
func (s *Service) MonthlyClosing(ctx context.Context, year int, month time.Month) (MonthlyReport, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	txns, err := s.stock.LogEntries(ctx, inventory.LogFilter{From: first, To: next})
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("log entries: %w", err)
	}
	cells, err := s.stock.Snapshot(ctx, inventory.SnapshotFilter{})
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("snapshot: %w", err)
	}
	names, err := s.catalog.ProductNames(ctx)
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("product names: %w", err)
	}

	byDay := map[time.Time][]inventory.Transaction{}
	for _, txn := range txns {
		day := txn.CreatedAt.UTC().Truncate(24 * time.Hour)
		byDay[day] = append(byDay[day], txn)
	}
	positions := positionsFromCells(cells)

	allIDs := map[int64]struct{}{}
	for id := range positions {
		allIDs[id] = struct{}{}
	}
	for _, txn := range txns {
		allIDs[txn.ProductID] = struct{}{}
	}
	ids := sortedIDs(allIDs)

	report := MonthlyReport{Year: year, Month: month}
	for day := first; day.Before(next); day = day.AddDate(0, 0, 1) {
		movements := tallyMovements(byDay[day])
		for _, id := range ids {
			row := MonthlyRow{
				Date:        day,
				ProductID:   id,
				ProductName: names[id],
				Opening:     positions[id],
				Closing:     positions[id],
			}
			if m, ok := movements[id]; ok {
				row.Movement = *m
			}
			report.Rows = append(report.Rows, row)
		}
	}
	return report, nil
}

// BucketMovement totals what entered and left one bucket over a period.
// Only single-sided ledger legs count; the combined summary row a move also
// writes carries both sides and would double the totals.
func (s *Service) BucketMovement(ctx context.Context, bucket inventory.Bucket, from, to time.Time) (BucketMovementReport, error) {
	if !bucket.IsValid() {
		return BucketMovementReport{}, fmt.Errorf("%q: %w", bucket, ErrUnknownBucket)
	}
	if to.Before(from) {
		return BucketMovementReport{}, ErrBadRange
	}

	txns, err := s.stock.LogEntries(ctx, inventory.LogFilter{From: from, To: to})
	if err != nil {
		return BucketMovementReport{}, fmt.Errorf("log entries: %w", err)
	}
	cells, err := s.stock.Snapshot(ctx, inventory.SnapshotFilter{Bucket: bucket})
	if err != nil {
		return BucketMovementReport{}, fmt.Errorf("snapshot: %w", err)
	}
	names, err := s.catalog.ProductNames(ctx)
	if err != nil {
		return BucketMovementReport{}, fmt.Errorf("product names: %w", err)
	}

	type tally struct{ in, out int64 }
	byProduct := map[int64]*tally{}
	get := func(id int64) *tally {
		t, ok := byProduct[id]
		if !ok {
			t = &tally{}
			byProduct[id] = t
		}
		return t
	}
	for _, txn := range txns {
		switch {
		case txn.IsIncrease() && txn.ToBucket == bucket:
			get(txn.ProductID).in += txn.Qty
		case txn.IsDecrease() && txn.FromBucket == bucket:
			get(txn.ProductID).out += txn.Qty
		}
	}

	balances := map[int64]int64{}
	for _, cell := range cells {
		balances[cell.ProductID] += cell.Qty
	}

	allIDs := map[int64]struct{}{}
	for id := range byProduct {
		allIDs[id] = struct{}{}
	}
	for id := range balances {
		allIDs[id] = struct{}{}
	}

	report := BucketMovementReport{Bucket: bucket, From: from, To: to}
	for _, id := range sortedIDs(allIDs) {
		row := BucketMovementRow{ProductID: id, ProductName: names[id], Balance: balances[id]}
		if t, ok := byProduct[id]; ok {
			row.In = t.in
			row.Out = t.out
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

// ProductMovement returns one product's transaction trail for a period plus
// its current position.
func (s *Service) ProductMovement(ctx context.Context, productID int64, from, to time.Time) (ProductMovementReport, error) {
	if to.Before(from) {
		return ProductMovementReport{}, ErrBadRange
	}

	txns, err := s.stock.LogEntries(ctx, inventory.LogFilter{
		ProductID: productID,
		From:      from,
		To:        to,
	})
	if err != nil {
		return ProductMovementReport{}, fmt.Errorf("log entries: %w", err)
	}
	cells, err := s.stock.Snapshot(ctx, inventory.SnapshotFilter{ProductID: productID})
	if err != nil {
		return ProductMovementReport{}, fmt.Errorf("snapshot: %w", err)
	}
	names, err := s.catalog.ProductNames(ctx)
	if err != nil {
		return ProductMovementReport{}, fmt.Errorf("product names: %w", err)
	}

	return ProductMovementReport{
		ProductID:   productID,
		ProductName: names[productID],
		From:        from,
		To:          to,
		Position:    positionsFromCells(cells)[productID],
		Entries:     txns,
	}, nil
}

func unionProductIDs(movements map[int64]*Movement, positions map[int64]StockPosition) []int64 {
	ids := map[int64]struct{}{}
	for id := range movements {
		ids[id] = struct{}{}
	}
	for id := range positions {
		ids[id] = struct{}{}
	}
	return sortedIDs(ids)
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
