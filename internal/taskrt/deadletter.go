package taskrt

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/pickeld/lucy/internal/logger"
)

// logDeadLetterCandidate records every handler failure through the
// shared logger. asynq already retains failed tasks in its own
// archive (inspectable via asynqmon/the CLI); this gives Lucy's own
// log stream a record too, so a failure shows up wherever the rest of
// the system's errors do rather than only in Redis.
func logDeadLetterCandidate(ctx context.Context, taskType string, t *asynq.Task, err error) {
	logger.ErrorWithFields(ctx, err, map[string]interface{}{
		"component": "taskrt",
		"task_type": taskType,
		"payload":   string(t.Payload()),
	})
}
