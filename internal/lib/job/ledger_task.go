package job

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// TaskLedgerInit is the job type name stored in Redis.
const TaskLedgerInit = "ledger:init"

// LedgerInitPayload is serialized into the task so the worker logs can be
// tied back to the request that queued it.
type LedgerInitPayload struct {
	RequestID   string    `json:"request_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewLedgerInitTask builds the seed task. The task id is fixed so a second
// request while one is still in the queue does not add a duplicate. An
// archived task keeps the id taken until it is deleted.
func NewLedgerInitTask(requestID string) (*asynq.Task, error) {
	payload, err := json.Marshal(LedgerInitPayload{
		RequestID:   requestID,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskLedgerInit,
		payload,
		asynq.TaskID(TaskLedgerInit),
		asynq.MaxRetry(5),
		asynq.Queue(QueueCritical),
		asynq.Timeout(2*time.Minute),
	), nil
}
