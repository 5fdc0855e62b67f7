// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

// Package testutil provides test utilities shared by the agent's packages.
package testutil

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var update = flag.Bool("update", false, "Write the golden files instead of comparing against them")

// goldenPath returns the golden file of the test, subtests included.
func goldenPath(t *testing.T) string {
	t.Helper()

	return filepath.Join("testdata", strings.ReplaceAll(t.Name(), "/", "_")+".golden")
}

// RequireGoldenJSON asserts that the golden file of the test holds JSON equal to the
// encoded data, e.g. a push request. Key order and indentation are ignored when comparing,
// so golden files stay readable. Run the tests with -update to write them.
func RequireGoldenJSON(t *testing.T, data any) {
	t.Helper()

	actual, err := json.MarshalIndent(data, "", " ")
	require.NoError(t, err)

	filename := goldenPath(t)

	if *update {
		require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0o755))
		require.NoError(t, os.WriteFile(filename, actual, 0o644)) //nolint:gosec // Golden files are not sensitive.

		return
	}

	expected, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		t.Fatalf("golden file %s missing, write it by running the test with -update", filename)
	}
	require.NoError(t, err)

	require.JSONEqf(t, string(expected), string(actual), "golden file %s mismatch", filename)
}
