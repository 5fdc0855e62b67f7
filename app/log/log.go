// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

// Package log provides global logging functions to be used throughout the agent and its host process.
// It supports contextual logging via WithCtx and structured logging and structured errors
// via z.Field. Logs can optionally be shipped to Loki via the agent itself, see WithAgent.
package log

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nethergamesmc/lokilogger/app/errors"
	"github.com/nethergamesmc/lokilogger/app/z"
)

type (
	ctxKey   struct{}
	topicKey struct{}
)

// WithCtx returns a child context carrying the fields, every log using it includes them.
// Usage:
//
//	ctx = log.WithCtx(ctx, z.Labels("input_labels", labels))
//	log.Info(ctx, "Input exhausted, shutting down") // Includes input_labels.
func WithCtx(ctx context.Context, fields ...z.Field) context.Context {
	return context.WithValue(ctx, ctxKey{}, append(fields, fieldsFromCtx(ctx)...))
}

// WithTopic is a convenience function that adds the topic
// contextual logging field to the returned child context.
func WithTopic(ctx context.Context, component string) context.Context {
	ctx = context.WithValue(ctx, topicKey{}, component)
	return WithCtx(ctx, z.Str("topic", component))
}

func fieldsFromCtx(ctx context.Context) []z.Field {
	resp, _ := ctx.Value(ctxKey{}).([]z.Field)
	return resp
}

func metricsTopicFromCtx(ctx context.Context) string {
	resp, _ := ctx.Value(topicKey{}).(string)
	if resp == "" {
		return "unknown"
	}

	return resp
}

// Debug logs the message and fields (incl fields in the context) at Debug level.
// Debug should be used for most logging.
func Debug(ctx context.Context, msg string, fields ...z.Field) {
	logAt(ctx, zapcore.DebugLevel, msg, nil, fields)
}

// Info logs the message and fields (incl fields in the context) at Info level.
// Info should only be used for high level important events.
func Info(ctx context.Context, msg string, fields ...z.Field) {
	logAt(ctx, zapcore.InfoLevel, msg, nil, fields)
}

// Warn wraps err with msg and fields and logs it (incl fields in the context) at Warn level.
// Nil err is supported and results in similar behaviour to Info, just at Warn level.
// Warn should only be used when a problem is encountered that *does not* require any action to be taken,
// e.g. a dropped batch the agent recovers from on the next flush.
func Warn(ctx context.Context, msg string, err error, fields ...z.Field) {
	incWarnCounter(ctx)
	logAt(ctx, zapcore.WarnLevel, msg, err, fields)
}

// Error wraps err with msg and fields and logs it (incl fields in the context) at Error level.
// Nil err is supported and results in similar behaviour to Info, just at Error level.
// Error should only be used when a problem is encountered that *does* require action to be taken.
func Error(ctx context.Context, msg string, err error, fields ...z.Field) {
	incErrorCounter(ctx)
	logAt(ctx, zapcore.ErrorLevel, msg, err, fields)
}

// logAt logs at the level unless a filter field drops it. A non-nil err is wrapped
// with msg and fields, its message becomes the log message and its fields the log fields.
// It must be called directly by the level functions since the caller skip depends on it.
func logAt(ctx context.Context, level zapcore.Level, msg string, err error, fields []z.Field) {
	if err != nil {
		err = errors.SkipWrap(err, msg, 3, fields...)
		msg = err.Error()
		fields = []z.Field{errFields(err)}
	}

	zfl, ok := collectFields(ctx, fields...)
	if !ok {
		return
	}

	switch level {
	case zapcore.DebugLevel:
		logger.Debug(msg, zfl...)
	case zapcore.InfoLevel:
		logger.Info(msg, zfl...)
	case zapcore.WarnLevel:
		logger.Warn(msg, zfl...)
	default:
		logger.Error(msg, zfl...)
	}
}

// collectFields returns the zap fields of the explicit fields followed by the context fields,
// the first field of a key wins. It returns false if a filter field drops the log.
func collectFields(ctx context.Context, fields ...z.Field) ([]zap.Field, bool) {
	var (
		resp    []zap.Field
		dropped bool
		seen    = make(map[string]struct{})
	)

	add := func(f zap.Field) {
		if f.Type == filterFieldType {
			dropped = true
			return
		}

		if _, ok := seen[f.Key]; !ok {
			seen[f.Key] = struct{}{}
			resp = append(resp, f)
		}
	}

	for _, field := range fields {
		field(add)
	}

	for _, field := range fieldsFromCtx(ctx) {
		field(add)
	}

	return resp, !dropped
}

// errFields returns the stack trace and structured fields of err without its message,
// since the message is already the log message.
func errFields(err error) z.Field {
	type structured interface {
		Fields() []z.Field
		Stack() zap.Field
	}

	serr, ok := err.(structured) //nolint:errorlint // Only the outermost error carries all fields.
	if !ok {
		return func(func(zap.Field)) {}
	}

	return func(add func(zap.Field)) {
		add(serr.Stack())

		for _, field := range serr.Fields() {
			field(add)
		}
	}
}
