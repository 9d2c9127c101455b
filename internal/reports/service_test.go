package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gasflow-erp/gasflow/internal/inventory"
)

type fakeStock struct {
	cells []inventory.StockCell
	txns  []inventory.Transaction
}

func (f *fakeStock) Snapshot(_ context.Context, filter inventory.SnapshotFilter) ([]inventory.StockCell, error) {
	var out []inventory.StockCell
	for _, cell := range f.cells {
		if filter.ProductID != 0 && cell.ProductID != filter.ProductID {
			continue
		}
		if filter.Bucket != "" && cell.Bucket != filter.Bucket {
			continue
		}
		out = append(out, cell)
	}
	return out, nil
}

func (f *fakeStock) LogEntries(_ context.Context, filter inventory.LogFilter) ([]inventory.Transaction, error) {
	var out []inventory.Transaction
	for _, txn := range f.txns {
		if filter.ProductID != 0 && txn.ProductID != filter.ProductID {
			continue
		}
		if !filter.From.IsZero() && txn.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !txn.CreatedAt.Before(filter.To) {
			continue
		}
		out = append(out, txn)
	}
	return out, nil
}

type fakeCatalog map[int64]string

func (f fakeCatalog) ProductNames(_ context.Context) (map[int64]string, error) {
	return f, nil
}

// moveRows builds the three ledger rows a move writes: the decrease leg,
// the increase leg and the combined summary.
func moveRows(at time.Time, productID int64, fromB inventory.Bucket, fromS inventory.State, toB inventory.Bucket, toS inventory.State, qty int64, typ inventory.TxnType) []inventory.Transaction {
	return []inventory.Transaction{
		{ProductID: productID, FromBucket: fromB, FromState: fromS, Qty: qty, Type: typ, CreatedAt: at},
		{ProductID: productID, ToBucket: toB, ToState: toS, Qty: qty, Type: typ, CreatedAt: at},
		{ProductID: productID, FromBucket: fromB, FromState: fromS, ToBucket: toB, ToState: toS, Qty: qty, Type: typ, CreatedAt: at},
	}
}

func TestDSRCountsEachMovementOnce(t *testing.T) {
	day := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	at := day.Add(10 * time.Hour)

	stock := &fakeStock{
		cells: []inventory.StockCell{
			{ProductID: 1, Bucket: inventory.BucketGodown, State: inventory.StateFull, Qty: 43},
			{ProductID: 1, Bucket: inventory.BucketGodown, State: inventory.StateEmpty, Qty: 6},
			{ProductID: 1, Bucket: inventory.BucketCMOut, State: inventory.StateFull, Qty: 0},
			{ProductID: 1, Bucket: inventory.BucketDefFull, State: inventory.StateDefective, Qty: 1},
		},
	}
	// GRN receipt of 50 fulls
	stock.txns = append(stock.txns, inventory.Transaction{
		ProductID: 1, ToBucket: inventory.BucketGodown, ToState: inventory.StateFull,
		Qty: 50, Type: inventory.TxnGRN, CreatedAt: at,
	})
	// 10 assigned out, 7 delivered, 6 empties back, 2 unsold back, 1 defective
	stock.txns = append(stock.txns, moveRows(at, 1,
		inventory.BucketGodown, inventory.StateFull,
		inventory.BucketCMOut, inventory.StateFull, 10, inventory.TxnAssign)...)
	stock.txns = append(stock.txns, inventory.Transaction{
		ProductID: 1, FromBucket: inventory.BucketCMOut, FromState: inventory.StateFull,
		Qty: 7, Type: inventory.TxnDelivery, CreatedAt: at,
	})
	stock.txns = append(stock.txns, inventory.Transaction{
		ProductID: 1, ToBucket: inventory.BucketGodown, ToState: inventory.StateEmpty,
		Qty: 6, Type: inventory.TxnReturn, CreatedAt: at,
	})
	stock.txns = append(stock.txns, moveRows(at, 1,
		inventory.BucketCMOut, inventory.StateFull,
		inventory.BucketGodown, inventory.StateFull, 2, inventory.TxnReturn)...)
	stock.txns = append(stock.txns, moveRows(at, 1,
		inventory.BucketCMOut, inventory.StateFull,
		inventory.BucketDefFull, inventory.StateDefective, 1, inventory.TxnAdjustment)...)

	svc := NewService(stock, fakeCatalog{1: "14.2kg Domestic"})
	report, err := svc.DSR(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)

	row := report.Rows[0]
	assert.Equal(t, "14.2kg Domestic", row.ProductName)
	assert.Equal(t, int64(50), row.ReceivedFull)
	assert.Equal(t, int64(10), row.LoadAssigned)
	assert.Equal(t, int64(7), row.DeliveredFull)
	assert.Equal(t, int64(6), row.EmptyCollected)
	assert.Equal(t, int64(2), row.UnsoldFull)
	assert.Equal(t, int64(1), row.DefectiveMoved)

	// opening and closing both come from the live cells
	assert.Equal(t, StockPosition{Full: 43, Empty: 6, Defective: 1}, row.Opening)
	assert.Equal(t, row.Opening, row.Closing)
}

func TestDSRIgnoresOtherDays(t *testing.T) {
	day := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	stock := &fakeStock{
		txns: []inventory.Transaction{
			{ProductID: 1, ToBucket: inventory.BucketGodown, ToState: inventory.StateFull,
				Qty: 50, Type: inventory.TxnGRN, CreatedAt: day.AddDate(0, 0, -1)},
			{ProductID: 1, ToBucket: inventory.BucketGodown, ToState: inventory.StateFull,
				Qty: 20, Type: inventory.TxnGRN, CreatedAt: day.Add(6 * time.Hour)},
		},
	}
	svc := NewService(stock, fakeCatalog{})
	report, err := svc.DSR(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, int64(20), report.Rows[0].ReceivedFull)
}

func TestMonthlyClosingHasRowPerDayPerProduct(t *testing.T) {
	stock := &fakeStock{
		cells: []inventory.StockCell{
			{ProductID: 1, Bucket: inventory.BucketGodown, State: inventory.StateFull, Qty: 30},
			{ProductID: 2, Bucket: inventory.BucketGodown, State: inventory.StateFull, Qty: 8},
		},
		txns: []inventory.Transaction{
			{ProductID: 1, ToBucket: inventory.BucketGodown, ToState: inventory.StateFull,
				Qty: 30, Type: inventory.TxnGRN, CreatedAt: time.Date(2026, 6, 12, 9, 0, 0, 0, time.UTC)},
		},
	}
	svc := NewService(stock, fakeCatalog{1: "14.2kg", 2: "19kg"})
	report, err := svc.MonthlyClosing(context.Background(), 2026, time.June)
	require.NoError(t, err)
	assert.Len(t, report.Rows, 30*2)

	var withMovement int
	for _, row := range report.Rows {
		// snapshot quirk: every day shows the same live position
		assert.Equal(t, row.Opening, row.Closing)
		if !row.Movement.IsZero() {
			withMovement++
			assert.Equal(t, 12, row.Date.Day())
			assert.Equal(t, int64(1), row.ProductID)
		}
	}
	assert.Equal(t, 1, withMovement)
}

func TestBucketMovementCountsLegsOnly(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	at := from.Add(48 * time.Hour)

	stock := &fakeStock{
		cells: []inventory.StockCell{
			{ProductID: 1, Bucket: inventory.BucketCMOut, State: inventory.StateFull, Qty: 3},
		},
	}
	stock.txns = append(stock.txns, moveRows(at, 1,
		inventory.BucketGodown, inventory.StateFull,
		inventory.BucketCMOut, inventory.StateFull, 10, inventory.TxnAssign)...)
	stock.txns = append(stock.txns, inventory.Transaction{
		ProductID: 1, FromBucket: inventory.BucketCMOut, FromState: inventory.StateFull,
		Qty: 7, Type: inventory.TxnDelivery, CreatedAt: at,
	})

	svc := NewService(stock, fakeCatalog{})
	report, err := svc.BucketMovement(context.Background(), inventory.BucketCMOut, from, to)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, int64(10), report.Rows[0].In)
	assert.Equal(t, int64(7), report.Rows[0].Out)
	assert.Equal(t, int64(3), report.Rows[0].Balance)
}

func TestBucketMovementGuards(t *testing.T) {
	svc := NewService(&fakeStock{}, fakeCatalog{})
	now := time.Now()

	_, err := svc.BucketMovement(context.Background(), "LOADING_DOCK", now.AddDate(0, 0, -1), now)
	assert.ErrorIs(t, err, ErrUnknownBucket)

	_, err = svc.BucketMovement(context.Background(), inventory.BucketGodown, now, now.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrBadRange)
}

func TestProductMovementTrail(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	at := from.Add(time.Hour)

	stock := &fakeStock{
		cells: []inventory.StockCell{
			{ProductID: 1, Bucket: inventory.BucketGodown, State: inventory.StateFull, Qty: 50},
			{ProductID: 2, Bucket: inventory.BucketGodown, State: inventory.StateFull, Qty: 9},
		},
		txns: []inventory.Transaction{
			{ProductID: 1, ToBucket: inventory.BucketGodown, ToState: inventory.StateFull,
				Qty: 50, Type: inventory.TxnGRN, CreatedAt: at},
			{ProductID: 2, ToBucket: inventory.BucketGodown, ToState: inventory.StateFull,
				Qty: 9, Type: inventory.TxnGRN, CreatedAt: at},
		},
	}
	svc := NewService(stock, fakeCatalog{1: "14.2kg"})
	report, err := svc.ProductMovement(context.Background(), 1, from, to)
	require.NoError(t, err)
	assert.Equal(t, "14.2kg", report.ProductName)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, int64(50), report.Entries[0].Qty)
	assert.Equal(t, StockPosition{Full: 50}, report.Position)
}
