package delivery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gasflow-erp/gasflow/internal/inventory"
)

type memoryRepo struct {
	runs      map[int64]Run
	loads     map[int64][]Load
	summaries map[int64]Summary
	records   map[int64][]Record
	nextID    int64

	txDepth  int
	snapshot *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		runs:      map[int64]Run{},
		loads:     map[int64][]Load{},
		summaries: map[int64]Summary{},
		records:   map[int64][]Record{},
	}
}

func (m *memoryRepo) clone() *memoryRepo {
	c := newMemoryRepo()
	c.nextID = m.nextID
	for k, v := range m.runs {
		c.runs[k] = v
	}
	for k, v := range m.loads {
		c.loads[k] = append([]Load(nil), v...)
	}
	for k, v := range m.summaries {
		c.summaries[k] = v
	}
	for k, v := range m.records {
		c.records[k] = append([]Record(nil), v...)
	}
	return c
}

func (m *memoryRepo) restore(from *memoryRepo) {
	m.runs = from.runs
	m.loads = from.loads
	m.summaries = from.summaries
	m.records = from.records
	m.nextID = from.nextID
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if m.txDepth == 0 {
		m.snapshot = m.clone()
	}
	m.txDepth++
	err := fn(ctx)
	m.txDepth--
	if err != nil && m.txDepth == 0 {
		m.restore(m.snapshot)
	}
	return err
}

func (m *memoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryRepo) CreateRun(_ context.Context, run Run) (Run, error) {
	run.ID = m.id()
	run.CreatedAt = time.Now()
	run.UpdatedAt = run.CreatedAt
	m.runs[run.ID] = run
	return run, nil
}

func (m *memoryRepo) GetRun(_ context.Context, id int64) (Run, error) {
	run, ok := m.runs[id]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return run, nil
}

func (m *memoryRepo) ListRuns(_ context.Context, _ ListRunsFilter) ([]Run, error) {
	var out []Run
	for _, run := range m.runs {
		out = append(out, run)
	}
	return out, nil
}

func (m *memoryRepo) UpdateRunStatus(_ context.Context, id int64, from, to RunStatus) error {
	run, ok := m.runs[id]
	if !ok || run.Status != from {
		return fmt.Errorf("run %d is no longer %s: %w", id, from, ErrRunNotOpen)
	}
	run.Status = to
	m.runs[id] = run
	return nil
}

func (m *memoryRepo) NextRunNumber(_ context.Context, date time.Time) (string, error) {
	return fmt.Sprintf("RUN-%s-%04d", date.Format("200601"), len(m.runs)+1), nil
}

func (m *memoryRepo) InsertLoad(_ context.Context, load Load) (Load, error) {
	load.ID = m.id()
	for i := range load.Items {
		load.Items[i].ID = m.id()
		load.Items[i].LoadID = load.ID
	}
	m.loads[load.RunID] = append(m.loads[load.RunID], load)
	return load, nil
}

func (m *memoryRepo) ListLoads(_ context.Context, runID int64) ([]Load, error) {
	return m.loads[runID], nil
}

func (m *memoryRepo) InsertSummary(_ context.Context, summary Summary) (Summary, error) {
	if _, ok := m.summaries[summary.RunID]; ok {
		return Summary{}, ErrSummaryExists
	}
	summary.ID = m.id()
	for i := range summary.Items {
		summary.Items[i].ID = m.id()
		summary.Items[i].SummaryID = summary.ID
	}
	m.summaries[summary.RunID] = summary
	return summary, nil
}

func (m *memoryRepo) GetSummary(_ context.Context, runID int64) (Summary, error) {
	summary, ok := m.summaries[runID]
	if !ok {
		return Summary{}, ErrNoSummary
	}
	return summary, nil
}

func (m *memoryRepo) InsertRecord(_ context.Context, record Record) (Record, error) {
	record.ID = m.id()
	record.CreatedAt = time.Now()
	m.records[record.RunID] = append(m.records[record.RunID], record)
	return record, nil
}

func (m *memoryRepo) ListRecords(_ context.Context, runID int64) ([]Record, error) {
	return m.records[runID], nil
}

type ledgerOp struct {
	kind string
	in   inventory.MovementInput
	move inventory.MoveInput
}

type fakeInventory struct {
	ops    []ledgerOp
	failAt int
}

func (f *fakeInventory) step() error {
	if f.failAt > 0 && len(f.ops) == f.failAt {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeInventory) Increase(_ context.Context, in inventory.MovementInput) (inventory.StockCell, error) {
	f.ops = append(f.ops, ledgerOp{kind: "increase", in: in})
	return inventory.StockCell{}, f.step()
}

func (f *fakeInventory) Decrease(_ context.Context, in inventory.MovementInput) (inventory.StockCell, error) {
	f.ops = append(f.ops, ledgerOp{kind: "decrease", in: in})
	return inventory.StockCell{}, f.step()
}

func (f *fakeInventory) Move(_ context.Context, in inventory.MoveInput) (inventory.MoveResult, error) {
	f.ops = append(f.ops, ledgerOp{kind: "move", move: in})
	return inventory.MoveResult{}, f.step()
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *fakeInventory) {
	t.Helper()
	repo := newMemoryRepo()
	stock := &fakeInventory{}
	return NewService(repo, stock, nil), repo, stock
}

func openRun(t *testing.T, svc *Service) Run {
	t.Helper()
	run, err := svc.CreateRun(context.Background(), CreateRunRequest{
		StaffID: 7,
		Date:    time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, RunStatusOpen, run.Status)
	return run
}

func TestPostLoadMovesStockOut(t *testing.T) {
	svc, repo, stock := newTestService(t)
	run := openRun(t, svc)

	load, err := svc.PostLoad(context.Background(), run.ID, PostLoadRequest{
		Items: []LoadItemReq{
			{ProductID: 1, Qty: 20},
			{ProductID: 2, Qty: 5},
		},
	})
	require.NoError(t, err)
	assert.Len(t, load.Items, 2)

	require.Len(t, stock.ops, 2)
	first := stock.ops[0]
	assert.Equal(t, "move", first.kind)
	assert.Equal(t, inventory.BucketGodown, first.move.FromBucket)
	assert.Equal(t, inventory.StateFull, first.move.FromState)
	assert.Equal(t, inventory.BucketCMOut, first.move.ToBucket)
	assert.Equal(t, inventory.StateFull, first.move.ToState)
	assert.Equal(t, inventory.TxnAssign, first.move.Type)
	assert.Equal(t, run.Number, first.move.ReferenceID)
	assert.Equal(t, int64(20), first.move.Qty)

	got, err := repo.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusOpen, got.Status)
}

func TestPostLoadRejectedWhenNotOpen(t *testing.T) {
	svc, repo, stock := newTestService(t)
	run := openRun(t, svc)
	require.NoError(t, repo.UpdateRunStatus(context.Background(), run.ID, RunStatusOpen, RunStatusReturned))

	_, err := svc.PostLoad(context.Background(), run.ID, PostLoadRequest{
		Items: []LoadItemReq{{ProductID: 1, Qty: 1}},
	})
	assert.ErrorIs(t, err, ErrRunNotOpen)
	assert.Empty(t, stock.ops)
}

func TestPostSummaryBooksAllLegs(t *testing.T) {
	svc, repo, stock := newTestService(t)
	run := openRun(t, svc)

	_, err := svc.PostSummary(context.Background(), run.ID, PostSummaryRequest{
		Items: []SummaryItemReq{{
			ProductID:           1,
			TotalFullDelivered:  12,
			TotalEmptyCollected: 10,
			TotalUnsoldFull:     3,
			TotalDefective:      1,
		}},
	})
	require.NoError(t, err)

	require.Len(t, stock.ops, 4)
	assert.Equal(t, "decrease", stock.ops[0].kind)
	assert.Equal(t, inventory.BucketCMOut, stock.ops[0].in.Bucket)
	assert.Equal(t, inventory.TxnDelivery, stock.ops[0].in.Type)
	assert.Equal(t, int64(12), stock.ops[0].in.Qty)

	assert.Equal(t, "increase", stock.ops[1].kind)
	assert.Equal(t, inventory.BucketGodown, stock.ops[1].in.Bucket)
	assert.Equal(t, inventory.StateEmpty, stock.ops[1].in.State)
	assert.Equal(t, inventory.TxnReturn, stock.ops[1].in.Type)

	assert.Equal(t, "move", stock.ops[2].kind)
	assert.Equal(t, inventory.BucketGodown, stock.ops[2].move.ToBucket)
	assert.Equal(t, inventory.TxnReturn, stock.ops[2].move.Type)
	assert.Equal(t, int64(3), stock.ops[2].move.Qty)

	assert.Equal(t, "move", stock.ops[3].kind)
	assert.Equal(t, inventory.BucketDefFull, stock.ops[3].move.ToBucket)
	assert.Equal(t, inventory.StateDefective, stock.ops[3].move.ToState)
	assert.Equal(t, inventory.TxnAdjustment, stock.ops[3].move.Type)

	got, err := repo.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusReturned, got.Status)
}

func TestPostSummaryTwiceRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	run := openRun(t, svc)

	req := PostSummaryRequest{Items: []SummaryItemReq{{ProductID: 1, TotalFullDelivered: 5}}}
	_, err := svc.PostSummary(context.Background(), run.ID, req)
	require.NoError(t, err)

	_, err = svc.PostSummary(context.Background(), run.ID, req)
	assert.ErrorIs(t, err, ErrRunNotOpen)
}

func TestPostSummaryFailureRollsBack(t *testing.T) {
	svc, repo, stock := newTestService(t)
	run := openRun(t, svc)
	stock.failAt = 2

	_, err := svc.PostSummary(context.Background(), run.ID, PostSummaryRequest{
		Items: []SummaryItemReq{{
			ProductID:           1,
			TotalFullDelivered:  12,
			TotalEmptyCollected: 10,
		}},
	})
	require.Error(t, err)

	_, err = repo.GetSummary(context.Background(), run.ID)
	assert.ErrorIs(t, err, ErrNoSummary)
	got, err := repo.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusOpen, got.Status)
}

func TestCreateRecordAllowedUntilReconciled(t *testing.T) {
	svc, repo, _ := newTestService(t)
	run := openRun(t, svc)

	rec := CreateRecordRequest{ConsumerID: 3, ProductID: 1, QtyFullDelivered: 2}
	_, err := svc.CreateRecord(context.Background(), run.ID, rec)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateRunStatus(context.Background(), run.ID, RunStatusOpen, RunStatusReturned))
	_, err = svc.CreateRecord(context.Background(), run.ID, rec)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateRunStatus(context.Background(), run.ID, RunStatusReturned, RunStatusReconciled))
	_, err = svc.CreateRecord(context.Background(), run.ID, rec)
	assert.ErrorIs(t, err, ErrRunNotEditable)
}

func TestReconcileReportsDiffWithoutAdjusting(t *testing.T) {
	svc, _, stock := newTestService(t)
	run := openRun(t, svc)

	_, err := svc.PostSummary(context.Background(), run.ID, PostSummaryRequest{
		Items: []SummaryItemReq{{ProductID: 1, TotalFullDelivered: 100}},
	})
	require.NoError(t, err)
	booked := len(stock.ops)

	for _, qty := range []int64{40, 30, 27} {
		_, err := svc.CreateRecord(context.Background(), run.ID, CreateRecordRequest{
			ConsumerID: 3, ProductID: 1, QtyFullDelivered: qty,
		})
		require.NoError(t, err)
	}

	report, err := svc.Reconcile(context.Background(), run.ID, false)
	require.NoError(t, err)
	assert.False(t, report.IsReconciled)
	assert.False(t, report.Adjusted)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, int64(100), report.Rows[0].SummaryFull)
	assert.Equal(t, int64(97), report.Rows[0].RecordsFull)
	assert.Equal(t, int64(3), report.Rows[0].DiffFull)

	// no adjustments booked, run stays RETURNED
	assert.Len(t, stock.ops, booked)
	got, err := svc.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusReturned, got.Status)
}

func TestReconcileAutoAdjustBooksDifference(t *testing.T) {
	svc, _, stock := newTestService(t)
	run := openRun(t, svc)

	_, err := svc.PostSummary(context.Background(), run.ID, PostSummaryRequest{
		Items: []SummaryItemReq{{ProductID: 1, TotalFullDelivered: 100, TotalEmptyCollected: 90}},
	})
	require.NoError(t, err)

	_, err = svc.CreateRecord(context.Background(), run.ID, CreateRecordRequest{
		ConsumerID: 3, ProductID: 1, QtyFullDelivered: 97, QtyEmptyCollected: 92,
	})
	require.NoError(t, err)

	booked := len(stock.ops)
	report, err := svc.Reconcile(context.Background(), run.ID, true)
	require.NoError(t, err)
	assert.True(t, report.Adjusted)

	require.Len(t, stock.ops, booked+2)
	full := stock.ops[booked]
	assert.Equal(t, "increase", full.kind)
	assert.Equal(t, inventory.BucketGodown, full.in.Bucket)
	assert.Equal(t, inventory.StateFull, full.in.State)
	assert.Equal(t, inventory.TxnAdjustment, full.in.Type)
	assert.Equal(t, int64(3), full.in.Qty)
	assert.Equal(t, run.Number, full.in.ReferenceID)

	empty := stock.ops[booked+1]
	assert.Equal(t, "increase", empty.kind)
	assert.Equal(t, inventory.StateEmpty, empty.in.State)
	assert.Equal(t, int64(2), empty.in.Qty)

	got, err := svc.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusReconciled, got.Status)
}

func TestReconcileCleanRunNeedsNoAdjustment(t *testing.T) {
	svc, _, stock := newTestService(t)
	run := openRun(t, svc)

	_, err := svc.PostSummary(context.Background(), run.ID, PostSummaryRequest{
		Items: []SummaryItemReq{{ProductID: 1, TotalFullDelivered: 10}},
	})
	require.NoError(t, err)
	_, err = svc.CreateRecord(context.Background(), run.ID, CreateRecordRequest{
		ConsumerID: 3, ProductID: 1, QtyFullDelivered: 10,
	})
	require.NoError(t, err)

	booked := len(stock.ops)
	report, err := svc.Reconcile(context.Background(), run.ID, false)
	require.NoError(t, err)
	assert.True(t, report.IsReconciled)
	assert.Len(t, stock.ops, booked)

	got, err := svc.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusReconciled, got.Status)
}

func TestReconcileWithoutSummary(t *testing.T) {
	svc, _, _ := newTestService(t)
	run := openRun(t, svc)

	_, err := svc.Reconcile(context.Background(), run.ID, false)
	assert.ErrorIs(t, err, ErrNoSummary)
}

func TestCancelGuards(t *testing.T) {
	svc, repo, _ := newTestService(t)
	run := openRun(t, svc)

	cancelled, err := svc.CancelRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCancelled, cancelled.Status)

	_, err = svc.CancelRun(context.Background(), run.ID)
	assert.ErrorIs(t, err, ErrRunNotEditable)

	other := openRun(t, svc)
	require.NoError(t, repo.UpdateRunStatus(context.Background(), other.ID, RunStatusOpen, RunStatusReturned))
	require.NoError(t, repo.UpdateRunStatus(context.Background(), other.ID, RunStatusReturned, RunStatusReconciled))
	_, err = svc.CancelRun(context.Background(), other.ID)
	assert.ErrorIs(t, err, ErrRunNotEditable)
}
