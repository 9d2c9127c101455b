package jobs

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gasflow-erp/gasflow/internal/inventory"
	"github.com/gasflow-erp/gasflow/internal/reports"
)

func TestEnqueueDSRWarmup(t *testing.T) {
	mr := miniredis.RunT(t)
	opts := asynq.RedisClientOpt{Addr: mr.Addr()}

	client, err := NewClient(opts)
	require.NoError(t, err)
	defer client.Close()

	info, err := client.EnqueueDSRWarmup(context.Background(), DSRWarmupPayload{Date: "2026-08-15"})
	require.NoError(t, err)
	assert.Equal(t, TaskReportsDSRWarmup, info.Type)
	assert.Equal(t, QueueDefault, info.Queue)

	inspector := asynq.NewInspector(opts)
	defer inspector.Close()
	pending, err := inspector.ListPendingTasks(QueueDefault)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	var payload DSRWarmupPayload
	require.NoError(t, json.Unmarshal(pending[0].Payload, &payload))
	assert.Equal(t, "2026-08-15", payload.Date)
}

type stubStock struct{}

func (stubStock) Snapshot(context.Context, inventory.SnapshotFilter) ([]inventory.StockCell, error) {
	return []inventory.StockCell{
		{ProductID: 1, Bucket: inventory.BucketGodown, State: inventory.StateFull, Qty: 12},
	}, nil
}

func (stubStock) LogEntries(context.Context, inventory.LogFilter) ([]inventory.Transaction, error) {
	return nil, nil
}

type stubCatalog struct{}

func (stubCatalog) ProductNames(context.Context) (map[int64]string, error) {
	return map[int64]string{1: "14.2kg Domestic"}, nil
}

func TestDSRWarmupHandlesPayload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	job := NewDSRWarmupJob(reports.NewService(stubStock{}, stubCatalog{}), logger)
	job.clock = func() time.Time {
		return time.Date(2026, 8, 16, 6, 0, 0, 0, time.UTC)
	}

	task, err := NewDSRWarmupTask(DSRWarmupPayload{Date: "2026-08-15"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	badDate, err := NewDSRWarmupTask(DSRWarmupPayload{Date: "15/08/2026"})
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), badDate), asynq.SkipRetry)
}
