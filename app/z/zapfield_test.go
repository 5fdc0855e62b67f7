// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package z_test

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nethergamesmc/lokilogger/app/errors"
	"github.com/nethergamesmc/lokilogger/app/z"
)

func TestFields(t *testing.T) {
	err := errors.New("test", z.Str("foo", "bar"), z.I64("zet", 123))

	fields := z.Fields(err)

	require.Len(t, fields, 2)
	require.NotNil(t, fields[0])
	require.NotNil(t, fields[1])
}

func TestContainsField(t *testing.T) {
	f1 := z.Str("foo", "bar")
	f2 := z.I64("zet", 123)
	err := errors.New("test", f1, f2)

	require.True(t, z.ContainsField(err, f1))
	require.True(t, z.ContainsField(err, f2))
	require.False(t, z.ContainsField(err, z.Bool("bool", true)))
}

func TestErr(t *testing.T) {
	err := errors.New("test", z.Str("foo", "bar"), z.I64("zet", 123))

	ufs := unwrap(z.Err(err))
	require.Len(t, ufs, 4) // zap.Error, zap.Stack, foo, zet
	require.True(t, slices.ContainsFunc(ufs, func(f zap.Field) bool {
		return f.Equals(zap.String("foo", "bar"))
	}))
	require.True(t, slices.ContainsFunc(ufs, func(f zap.Field) bool {
		return f.Key == "stacktrace"
	}))
	require.True(t, slices.ContainsFunc(ufs, func(f zap.Field) bool {
		return f.Key == "error"
	}))
}

func TestPrimitives(t *testing.T) {
	tests := []struct {
		name     string
		field    z.Field
		expected zap.Field
	}{
		{"str", z.Str("foo", "bar"), zap.String("foo", "bar")},
		{"bool", z.Bool("foo", true), zap.Bool("foo", true)},
		{"int", z.Int("foo", 123), zap.Int("foo", 123)},
		{"i64", z.I64("foo", 123), zap.Int64("foo", 123)},
		{"f64", z.F64("foo", 1.5), zap.Float64("foo", 1.5)},
		{"dur", z.Dur("foo", 1500*time.Millisecond), zap.String("foo", "1.5s")},
		{"any", z.Any("foo", 123.45), zap.String("foo", "123.45")},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ufs := unwrap(test.field)
			require.Len(t, ufs, 1)
			require.True(t, ufs[0].Equals(test.expected))
		})
	}
}

func TestLabels(t *testing.T) {
	require.Equal(t, "{}", z.FormatLabels(nil))
	require.Equal(t, `{job="app",level="info"}`, z.FormatLabels(map[string]string{"level": "info", "job": "app"}))

	ufs := unwrap(z.Labels("stream", map[string]string{"svc": "test"}))
	require.Len(t, ufs, 1)
	require.True(t, ufs[0].Equals(zap.String("stream", `{svc="test"}`)))
}

func TestSkip(t *testing.T) {
	require.Empty(t, unwrap(z.Skip))
}

func unwrap(fields ...z.Field) []zap.Field {
	var resp []zap.Field

	adder := func(f zap.Field) {
		resp = append(resp, f)
	}

	for _, field := range fields {
		field(adder)
	}

	return resp
}
