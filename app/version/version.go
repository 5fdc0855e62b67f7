// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

// Package version provides the release version and build info of the binary.
package version

import (
	"context"
	"runtime/debug"

	"github.com/nethergamesmc/lokilogger/app/log"
	"github.com/nethergamesmc/lokilogger/app/z"
)

// Version is the release version of the codebase.
// Usually overridden by tag names when building binaries.
var Version = "v0.1.0"

// GitCommit returns the git commit hash and timestamp from build info.
func GitCommit() (hash string, timestamp string) {
	hash, timestamp = "unknown", "unknown"

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return hash, timestamp
	}

	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			hash = s.Value[:7]
		} else if s.Key == "vcs.time" {
			timestamp = s.Value
		}
	}

	return hash, timestamp
}

// LogInfo logs version information along-with the provided message.
func LogInfo(ctx context.Context, msg string) {
	gitHash, gitTimestamp := GitCommit()
	log.Info(ctx, msg,
		z.Str("version", Version),
		z.Str("git_commit_hash", gitHash),
		z.Str("git_commit_time", gitTimestamp),
	)
}
