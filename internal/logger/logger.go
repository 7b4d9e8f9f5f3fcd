// Package logger wraps logrus with request-scoped fields (trace id,
// tenant id) carried on the context, so every log line emitted during
// a request or task carries the same correlation fields without every
// call site threading them through by hand.
package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

var base = logrus.New()

func init() {
	base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
}

// SetLevel adjusts the base logger's verbosity (wired from
// internal/config at boot).
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)
}

// CloneContext stamps a fresh *logrus.Entry onto ctx, carrying any
// fields already present on it (trace id, tenant id, request id) so
// background goroutines spawned from a request still log with the
// same correlation fields.
func CloneContext(ctx context.Context) context.Context {
	entry := entryFromContext(ctx)
	return context.WithValue(ctx, ctxKey{}, entry)
}

// WithFields returns a context whose logger carries the given extra
// fields in addition to whatever it already carries.
func WithFields(ctx context.Context, fields logrus.Fields) context.Context {
	entry := entryFromContext(ctx).WithFields(fields)
	return context.WithValue(ctx, ctxKey{}, entry)
}

func entryFromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if e, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
			return e
		}
	}
	return logrus.NewEntry(base)
}

// GetLogger returns the *logrus.Entry carried on ctx, falling back to
// the package-level base logger. Callers chain .Infof/.Errorf/etc
// directly, optionally after a .WithField.
func GetLogger(ctx context.Context) *logrus.Entry {
	return entryFromContext(ctx)
}

func Debug(ctx context.Context, args ...interface{})            { entryFromContext(ctx).Debug(args...) }
func Debugf(ctx context.Context, f string, args ...interface{}) { entryFromContext(ctx).Debugf(f, args...) }
func Info(ctx context.Context, args ...interface{})             { entryFromContext(ctx).Info(args...) }
func Infof(ctx context.Context, f string, args ...interface{})  { entryFromContext(ctx).Infof(f, args...) }
func Warn(ctx context.Context, args ...interface{})             { entryFromContext(ctx).Warn(args...) }
func Warnf(ctx context.Context, f string, args ...interface{})  { entryFromContext(ctx).Warnf(f, args...) }
func Error(ctx context.Context, args ...interface{})            { entryFromContext(ctx).Error(args...) }
func Errorf(ctx context.Context, f string, args ...interface{}) { entryFromContext(ctx).Errorf(f, args...) }

// ErrorWithFields logs err at Error level with the given extra fields
// merged in (nil is accepted for "no extra fields").
func ErrorWithFields(ctx context.Context, err error, fields logrus.Fields) {
	entry := entryFromContext(ctx)
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.WithError(err).Error("error")
}
