// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

// Package z provides an API for structured logging fields by wrapping zap.Field.
// It also supports internal structured errors.
package z

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Field wraps one or more zap fields.
type Field func(add func(zap.Field))

// Fields returns the fields of an internal structured error.
func Fields(err error) []Field {
	type structErr interface {
		Fields() []Field
	}

	serr, ok := err.(structErr) //nolint:errorlint
	if !ok {
		return []Field{}
	}

	return serr.Fields()
}

// ContainsField returns true if the error contains the given field.
func ContainsField(err error, field Field) bool {
	var target zap.Field
	field(func(f zap.Field) {
		target = f
	})

	return slices.ContainsFunc(Fields(err), func(f Field) bool {
		var source zap.Field
		f(func(zf zap.Field) {
			source = zf
		})

		return target.Equals(source)
	})
}

// Err returns a wrapped zap error field. It will include an additional stack trace and fields
// if the error is an internal structured error.
// NOTE: This is only used when logging errors on other levels than Error since it has built-in support for errors.
func Err(err error) Field {
	type structErr interface {
		Fields() []Field
		Stack() zap.Field
	}

	// Using cast instead of errors.As since no other wrapping library
	// is used and this avoids exporting the structured error type.
	serr, ok := err.(structErr) //nolint:errorlint
	if ok {
		return func(add func(zap.Field)) {
			add(zap.Error(err))
			add(serr.Stack())
			for _, field := range serr.Fields() {
				field(add)
			}
		}
	}

	return func(add func(zap.Field)) {
		add(zap.Error(err))
	}
}

// Str returns a wrapped zap string field.
func Str(key, val string) Field {
	return func(add func(zap.Field)) {
		add(zap.String(key, val))
	}
}

// Bool returns a wrapped zap boolean field.
func Bool(key string, val bool) Field {
	return func(add func(zap.Field)) {
		add(zap.Bool(key, val))
	}
}

// Int returns a wrapped zap int field.
func Int(key string, val int) Field {
	return func(add func(zap.Field)) {
		add(zap.Int(key, val))
	}
}

// I64 returns a wrapped zap int64 field.
func I64(key string, val int64) Field {
	return func(add func(zap.Field)) {
		add(zap.Int64(key, val))
	}
}

// F64 returns a wrapped zap float64 field.
func F64(key string, val float64) Field {
	return func(add func(zap.Field)) {
		add(zap.Float64(key, val))
	}
}

// Dur returns a wrapped zap string field with the duration formatted as "1.5s".
// The logfmt encoder renders durations as floats which are hard to read.
func Dur(key string, val time.Duration) Field {
	return func(add func(zap.Field)) {
		add(zap.String(key, val.String()))
	}
}

// Labels returns a wrapped zap string field with the label set formatted
// in Loki stream selector notation, e.g. {job="app",level="info"}.
func Labels(key string, labels map[string]string) Field {
	return func(add func(zap.Field)) {
		add(zap.String(key, FormatLabels(labels)))
	}
}

// FormatLabels returns the label set in Loki stream selector notation with sorted keys.
func FormatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s=%q", k, labels[k])
	}
	sb.WriteByte('}')

	return sb.String()
}

// Any returns a wrapped zap string field with the string version of value.
// Note we are not using zap.Any since logfmt formatter doesn't support it.
func Any(key string, val any) Field {
	return func(add func(zap.Field)) {
		add(zap.String(key, fmt.Sprint(val)))
	}
}

// Skip is a noop wrapped zap field similar to zap.Skip.
var Skip = func(func(zap.Field)) {}
