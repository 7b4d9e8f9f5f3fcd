// Package taskrt implements the durable task runtime (spec component
// C7): two asynq queues (default/heavy), exponential backoff with a
// per-task retry budget, idempotent handler registration, and dead-letter logging for
// tasks that exhaust their retries.
package taskrt

import (
	"time"

	"github.com/hibiken/asynq"
)

// Queue names mirror the Celery queue split the original task runtime
// used: "default" carries lightweight message/extraction tasks,
// "heavy" carries transcription (media.transcribe, the only task type
// routed to it), which must never run more than one at a time per worker.
const (
	QueueDefault = "default"
	QueueHeavy   = "heavy"
)

// Task type names. Every handler registration and every enqueue call
// goes through one of these constants so a typo can't silently create
// a task nobody handles.
const (
	TaskIdentityExtract   = "identity.extract"
	TaskIngestItem        = "ingest.item"
	TaskTranscribe        = "media.transcribe"
	TaskScheduledSync     = "plugin.scheduled_sync"
	TaskBackfillAssetEdge = "graph.backfill_asset_edge"
)

// QueuePriority is the relative weight a single combined server gives
// each queue when both have ready tasks. NewDefaultServer/NewHeavyServer
// run as two independent processes instead, but this stays available
// for a single-process deployment that wants one server draining both.
var QueuePriority = map[string]int{
	QueueDefault: 6,
	QueueHeavy:   1,
}

// Config tunes queue concurrency and retry behavior, sourced from the
// settings store's tasks.* keys at worker startup.
type Config struct {
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	DefaultConcurrency int
	HeavyConcurrency   int
}

// RedisOpt converts Config into the asynq redis connection option.
func (c Config) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// retryDelay implements the 30s·2^attempt backoff the original task
// runtime used, capped so a task that keeps failing doesn't end up
// waiting hours between attempts.
func retryDelay(n int, err error, t *asynq.Task) time.Duration {
	d := 30 * time.Second
	for i := 0; i < n; i++ {
		d *= 2
		if d > 30*time.Minute {
			return 30 * time.Minute
		}
	}
	return d
}

// NewDefaultServer builds the worker server that drains only the
// default queue, at the configured concurrency (4 unless overridden).
// Kept as a separate server from the heavy queue, not just a second
// queue on one server, so a burst of lightweight tasks can never
// starve the one heavy worker slot of its dedicated goroutine.
func NewDefaultServer(cfg Config) *asynq.Server {
	concurrency := cfg.DefaultConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return asynq.NewServer(cfg.RedisOpt(), asynq.Config{
		Concurrency:    concurrency,
		Queues:         map[string]int{QueueDefault: 1},
		RetryDelayFunc: retryDelay,
	})
}

// NewHeavyServer builds the worker server that drains only the heavy
// queue, at the configured concurrency (1 unless overridden) — so
// transcription tasks run one at a time. Scheduled syncs are routed to
// the default queue, not here.
func NewHeavyServer(cfg Config) *asynq.Server {
	concurrency := cfg.HeavyConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return asynq.NewServer(cfg.RedisOpt(), asynq.Config{
		Concurrency:    concurrency,
		Queues:         map[string]int{QueueHeavy: 1},
		RetryDelayFunc: retryDelay,
	})
}
