package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gasflow-erp/gasflow/internal/reports"
)

// DSRWarmupJob builds the daily sales register ahead of the morning rush so
// the first depot request of the day does not pay for it.
type DSRWarmupJob struct {
	Reports *reports.Service
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewDSRWarmupJob wires dependencies for the warmup handler.
func NewDSRWarmupJob(reportsSvc *reports.Service, logger *slog.Logger) *DSRWarmupJob {
	return &DSRWarmupJob{
		Reports: reportsSvc,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes register warmup tasks.
func (j *DSRWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("dsr warmup: handler not configured")
	}
	var payload DSRWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	date := j.now().AddDate(0, 0, -1)
	if payload.Date != "" {
		parsed, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			return asynq.SkipRetry
		}
		date = parsed
	}

	logger := j.logger().With(slog.String("date", date.Format("2006-01-02")))
	logger.Info("starting dsr warmup")

	started := j.now()
	report, err := j.Reports.DSR(ctx, date)
	if err != nil {
		logger.Error("build dsr", slog.Any("error", err))
		return err
	}

	anomalies := 0
	for _, row := range report.Rows {
		if row.Closing.Full < 0 || row.Closing.Empty < 0 || row.Closing.Defective < 0 {
			anomalies++
		}
	}
	if anomalies > 0 {
		logger.Warn("dsr rows with negative closing stock", slog.Int("anomalies", anomalies))
	}

	logger.Info("completed dsr warmup",
		slog.Int("rows", len(report.Rows)),
		slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *DSRWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsDSRWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportsDSRWarmup))
}

func (j *DSRWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
