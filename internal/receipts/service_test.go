package receipts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gasflow-erp/gasflow/internal/inventory"
)

type memoryRepo struct {
	receipts map[int64]Receipt
	nextID   int64
	depth    int
	saved    map[int64]Receipt
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{receipts: make(map[int64]Receipt)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if r.depth == 0 {
		r.saved = make(map[int64]Receipt, len(r.receipts))
		for k, v := range r.receipts {
			r.saved[k] = v
		}
	}
	r.depth++
	err := fn(ctx)
	r.depth--
	if err != nil && r.depth == 0 {
		r.receipts = r.saved
	}
	return err
}

func (r *memoryRepo) CreateReceipt(ctx context.Context, receipt Receipt) (Receipt, error) {
	r.nextID++
	receipt.ID = r.nextID
	receipt.CreatedAt = time.Now()
	receipt.UpdatedAt = receipt.CreatedAt
	for i := range receipt.Items {
		receipt.Items[i].ReceiptID = receipt.ID
	}
	r.receipts[receipt.ID] = receipt
	return receipt, nil
}

func (r *memoryRepo) GetReceipt(ctx context.Context, id int64) (Receipt, error) {
	receipt, ok := r.receipts[id]
	if !ok {
		return Receipt{}, ErrNotFound
	}
	return receipt, nil
}

func (r *memoryRepo) ListReceipts(ctx context.Context, filter ListFilter) ([]Receipt, error) {
	var result []Receipt
	for _, receipt := range r.receipts {
		result = append(result, receipt)
	}
	return result, nil
}

func (r *memoryRepo) MarkPosted(ctx context.Context, id int64) error {
	receipt, ok := r.receipts[id]
	if !ok {
		return ErrNotFound
	}
	if receipt.Status != StatusDraft {
		return ErrNotDraft
	}
	now := time.Now()
	receipt.Status = StatusPosted
	receipt.PostedAt = &now
	r.receipts[id] = receipt
	return nil
}

func (r *memoryRepo) NextDocNumber(ctx context.Context, kind Kind) (string, error) {
	return fmt.Sprintf("%s-TEST-%04d", kind, r.nextID+1), nil
}

type fakeInventory struct {
	increases []inventory.MovementInput
	failAt    int // 1-based call index to fail at, 0 = never
}

func (f *fakeInventory) Increase(ctx context.Context, input inventory.MovementInput) (inventory.StockCell, error) {
	if f.failAt > 0 && len(f.increases)+1 == f.failAt {
		return inventory.StockCell{}, errors.New("boom")
	}
	f.increases = append(f.increases, input)
	return inventory.StockCell{ProductID: input.ProductID, Bucket: input.Bucket, State: input.State, Qty: input.Qty}, nil
}

func TestPostBooksEveryLine(t *testing.T) {
	repo := newMemoryRepo()
	inv := &fakeInventory{}
	svc := NewService(repo, inv, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateReceiptRequest{
		Kind:     KindGRN,
		Supplier: "Depot North",
		Items: []CreateReceiptItemReq{
			{ProductID: 9, ReceivedFull: 5, ReceivedEmpty: 2, ReceivedDefective: 1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, created.Status)

	posted, err := svc.Post(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPosted, posted.Status)
	require.NotNil(t, posted.PostedAt)

	require.Len(t, inv.increases, 3)
	require.Equal(t, inventory.MovementInput{
		ProductID: 9, Bucket: inventory.BucketGodown, State: inventory.StateFull,
		Qty: 5, Type: inventory.TxnGRN, ReferenceID: created.Number,
	}, inv.increases[0])
	require.Equal(t, inventory.StateEmpty, inv.increases[1].State)
	require.EqualValues(t, 2, inv.increases[1].Qty)
	require.Equal(t, inventory.BucketDefFull, inv.increases[2].Bucket)
	require.Equal(t, inventory.StateDefective, inv.increases[2].State)
	require.EqualValues(t, 1, inv.increases[2].Qty)
}

func TestPostTwiceRejected(t *testing.T) {
	repo := newMemoryRepo()
	inv := &fakeInventory{}
	svc := NewService(repo, inv, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateReceiptRequest{
		Kind:  KindInvoice,
		Items: []CreateReceiptItemReq{{ProductID: 1, ReceivedFull: 3}},
	})
	require.NoError(t, err)

	_, err = svc.Post(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, inv.increases, 1)
	require.Equal(t, inventory.TxnInvoice, inv.increases[0].Type)

	_, err = svc.Post(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotDraft)
	require.Len(t, inv.increases, 1, "second post must not re-apply stock")
}

func TestPostFailureKeepsDraft(t *testing.T) {
	repo := newMemoryRepo()
	inv := &fakeInventory{failAt: 2}
	svc := NewService(repo, inv, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateReceiptRequest{
		Kind: KindGRN,
		Items: []CreateReceiptItemReq{
			{ProductID: 1, ReceivedFull: 3, ReceivedEmpty: 4},
		},
	})
	require.NoError(t, err)

	_, err = svc.Post(ctx, created.ID)
	require.Error(t, err)

	reloaded, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, reloaded.Status, "failed post must leave the document DRAFT")
}

func TestCreateGuards(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &fakeInventory{}, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateReceiptRequest{Kind: KindGRN})
	require.ErrorIs(t, err, ErrEmptyDocument)

	_, err = svc.Create(ctx, CreateReceiptRequest{Kind: "MEMO", Items: []CreateReceiptItemReq{{ProductID: 1, ReceivedFull: 1}}})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateReceiptRequest{Kind: KindGRN, Items: []CreateReceiptItemReq{{ProductID: 1}}})
	require.Error(t, err)
}
