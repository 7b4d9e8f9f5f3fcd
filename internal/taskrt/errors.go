package taskrt

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	apperrors "github.com/pickeld/lucy/internal/errors"
)

// Fatal wraps an error to signal it should never be retried — asynq
// still records the failure, but RetryDelayFunc's backoff is wasted
// effort on a permanently-bad payload (malformed JSON, a task type
// with no registered handler).
type Fatal struct{ cause error }

func (f *Fatal) Error() string { return f.cause.Error() }
func (f *Fatal) Unwrap() error { return f.cause }

// MarkFatal wraps err so isFatal treats it as non-retryable.
func MarkFatal(err error) error {
	if err == nil {
		return nil
	}
	return &Fatal{cause: err}
}

// isFatal reports whether err (or anything it wraps) was marked fatal,
// either explicitly via MarkFatal or because it's an AppError whose
// Code can never succeed on retry (bad input, not-found, conflict).
func isFatal(err error) bool {
	var f *Fatal
	if errors.As(err, &f) {
		return true
	}
	if ae, ok := apperrors.As(err); ok {
		switch ae.Code {
		case apperrors.CodeInvalidInput, apperrors.CodeNotFound, apperrors.CodeConflict:
			return true
		}
	}
	return false
}

// HandlerFunc is the signature every registered task handler
// implements.
type HandlerFunc func(ctx context.Context, t *asynq.Task) error

// wrapHandler adapts a HandlerFunc into asynq.HandlerFunc, logging
// every failure (retryable or not) and converting fatal errors into
// asynq.SkipRetry so the dead-letter archive records them immediately
// instead of exhausting retries first.
func wrapHandler(taskType string, h HandlerFunc) asynq.HandlerFunc {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		err := h(ctx, t)
		if err == nil {
			return nil
		}
		logDeadLetterCandidate(ctx, taskType, t, err)
		if isFatal(err) {
			return errors.Join(err, asynq.SkipRetry)
		}
		return err
	})
}
