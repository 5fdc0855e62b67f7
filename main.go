// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nethergamesmc/lokilogger/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cobra.CheckErr(cmd.New().ExecuteContext(ctx))
}
