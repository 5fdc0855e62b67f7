// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nethergamesmc/lokilogger/app/version"
)

func TestRunVersionCmd(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		var buf bytes.Buffer

		runVersionCmd(&buf, versionConfig{Verbose: false})

		str := buf.String()
		require.Contains(t, str, "git_commit_hash")
		require.Contains(t, str, "git_commit_time")
		require.NotContains(t, str, "Package:")

		parts := strings.Split(strings.TrimSpace(str), " ")
		require.Len(t, parts, 2)
		require.Equal(t, version.Version, parts[0])
	})

	t.Run("verbose", func(t *testing.T) {
		var buf bytes.Buffer

		runVersionCmd(&buf, versionConfig{Verbose: true})

		str := buf.String()
		require.Contains(t, str, "git_commit_hash")
		require.Contains(t, str, "Package:")
		require.Contains(t, str, "Dependencies:")
	})
}
