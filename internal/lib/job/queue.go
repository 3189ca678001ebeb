package job

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
)

// QueueCritical holds the ledger seed task.
const QueueCritical = "critical"

// Queue enqueues tasks and looks up ones already stored in Redis.
type Queue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewQueue connects a client and an inspector to the same Redis.
func NewQueue(redisOpt asynq.RedisConnOpt) *Queue {
	return &Queue{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
	}
}

func (q *Queue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return q.client.EnqueueContext(ctx, task, opts...)
}

func (q *Queue) GetTaskInfo(queue, id string) (*asynq.TaskInfo, error) {
	return q.inspector.GetTaskInfo(queue, id)
}

func (q *Queue) DeleteTask(queue, id string) error {
	return q.inspector.DeleteTask(queue, id)
}

// Close releases both Redis connections.
func (q *Queue) Close() error {
	return errors.Join(q.client.Close(), q.inspector.Close())
}
