package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/akademi-id/akademi/jobs"
)

// Queue is the slice of Asynq the CLI drives.
type Queue interface {
	Trigger(ctx context.Context, name string) (string, error)
	Stats(ctx context.Context) (QueueStats, error)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

type queueCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

func newQueueCLI(opts asynq.RedisClientOpt) *queueCLI {
	return &queueCLI{client: asynq.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *queueCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a job that needs no payload. Mail jobs are only enqueued by
// the site itself.
func (c *queueCLI) Trigger(ctx context.Context, name string) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("queue: client not configured")
	}
	var task *asynq.Task
	switch name {
	case jobs.TaskAdminDigest, "digest":
		task = jobs.NewAdminDigestTask()
	default:
		return "", fmt.Errorf("queue: unsupported job %s", name)
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// Stats reports the counters of the default queue.
func (c *queueCLI) Stats(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("queue: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}
