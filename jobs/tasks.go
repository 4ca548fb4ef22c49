// Package jobs runs background work over Asynq: the scheduled low-stock
// email digest and ad hoc enqueues from the API process.
package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLowStockEmail is the task type for the low-stock alert digest.
	TaskTypeLowStockEmail = "alerts:low_stock_email"
)

// LowStockEmailPayload carries scheduling metadata for the digest run.
type LowStockEmailPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockEmailTask constructs an Asynq task for the alert digest.
func NewLowStockEmailTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockEmailPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLowStockEmail, body, asynq.Queue(QueueDefault)), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueLowStockEmail enqueues an immediate digest run.
func (c *Client) EnqueueLowStockEmail(ctx context.Context) (*asynq.TaskInfo, error) {
	task, err := NewLowStockEmailTask(time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
