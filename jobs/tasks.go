package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportsDSRWarmup is the task type for pre-building the daily
	// sales register.
	TaskReportsDSRWarmup = "reports:dsr_warmup"
)

// DSRWarmupPayload selects the register date to warm. An empty date means
// the previous day.
type DSRWarmupPayload struct {
	Date string `json:"date"`
}

// NewDSRWarmupTask constructs an Asynq task.
func NewDSRWarmupTask(payload DSRWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsDSRWarmup, data), nil
}
