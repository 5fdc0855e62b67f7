// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package errors_test

import (
	"io"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nethergamesmc/lokilogger/app/errors"
	"github.com/nethergamesmc/lokilogger/app/z"
)

func TestComparable(t *testing.T) {
	require.False(t, reflect.TypeOf(errors.New("x")).Comparable())
}

func TestIs(t *testing.T) {
	errX := errors.New("x")

	err1 := errors.New("1", z.Str("1", "1"))
	err11 := errors.Wrap(err1, "w1")
	err111 := errors.Wrap(err11, "w2")

	require.True(t, errors.Is(err1, err1))
	require.True(t, errors.Is(err11, err1))
	require.True(t, errors.Is(err111, err1))
	require.True(t, errors.Is(err111, err11))
	require.False(t, errors.Is(err111, errX))

	errIO1 := errors.Wrap(io.EOF, "w1")
	errIO11 := errors.Wrap(errIO1, "w2")

	require.True(t, errors.Is(errIO1, io.EOF))
	require.True(t, errors.Is(errIO11, io.EOF))
	require.False(t, errors.Is(io.EOF, errIO1))
}

func TestSentinel(t *testing.T) {
	sentinel := errors.NewSentinel("not ready")

	err := errors.Wrap(sentinel, "lookup", z.Str("component", "agent"))
	require.True(t, errors.Is(err, sentinel))
	require.Equal(t, "lookup: not ready", err.Error())
	require.True(t, z.ContainsField(err, z.Str("component", "agent")))
}

func TestWrapKeepsInnerFields(t *testing.T) {
	inner := errors.New("push failed", z.Int("status_code", 500))
	outer := errors.Wrap(inner, "deliver batch", z.Int("attempt", 2))

	require.True(t, z.ContainsField(outer, z.Int("status_code", 500)))
	require.True(t, z.ContainsField(outer, z.Int("attempt", 2)))
	require.Equal(t, "deliver batch: push failed", outer.Error())
}
