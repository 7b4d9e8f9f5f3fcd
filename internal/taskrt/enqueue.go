package taskrt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer is the concrete client side of the task runtime: it wraps
// an asynq.Client and knows how to route a task name onto the right
// queue, retry count, and time limit. Satisfies ingest.TaskEnqueuer
// (the type host.Host.Tasks holds for plugins too) without ingest
// importing taskrt.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer opens the redis connection an Enqueuer dispatches
// through. Safe to share across goroutines — asynq.Client is.
func NewEnqueuer(cfg Config) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(cfg.RedisOpt())}
}

// Close releases the underlying redis connection.
func (e *Enqueuer) Close() error { return e.client.Close() }

// routing pins each known task type to its queue, retry budget, and
// hard time limit. Heavy tasks get fewer retries (2) since a failed
// transcription is expensive to redo; everything else gets the
// default 3.
var routing = map[string]struct {
	queue      string
	maxRetry   int
	timeLimit  time.Duration
}{
	TaskIdentityExtract:   {QueueDefault, 3, 2 * time.Minute},
	TaskIngestItem:        {QueueDefault, 3, 2 * time.Minute},
	TaskScheduledSync:     {QueueDefault, 3, 5 * time.Minute},
	TaskBackfillAssetEdge: {QueueDefault, 3, 2 * time.Minute},
	TaskTranscribe:        {QueueHeavy, 2, 20 * time.Minute},
}

// EnqueueDefault implements ingest.TaskEnqueuer:
// marshal payload as the task's JSON body and enqueue it onto the
// queue its taskName is routed to.
func (e *Enqueuer) EnqueueDefault(ctx context.Context, taskName string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling task payload: %w", err)
	}

	route, ok := routing[taskName]
	if !ok {
		return fmt.Errorf("no route registered for task type %q", taskName)
	}

	task := asynq.NewTask(taskName, body)
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(route.queue),
		asynq.MaxRetry(route.maxRetry),
		asynq.Timeout(route.timeLimit),
	)
	if err != nil {
		return fmt.Errorf("enqueuing task %q: %w", taskName, err)
	}
	return nil
}
