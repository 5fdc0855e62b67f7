// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package cmd

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nethergamesmc/lokilogger/app"
	"github.com/nethergamesmc/lokilogger/app/expbackoff"
	"github.com/nethergamesmc/lokilogger/app/log"
	"github.com/nethergamesmc/lokilogger/app/loki"
	"github.com/nethergamesmc/lokilogger/app/z"
)

// redactedFlags are not logged in plain text.
var redactedFlags = map[string]bool{
	"loki-password": true,
}

func newRunCmd(runFunc func(context.Context, app.Config) error) *cobra.Command {
	var (
		conf         app.Config
		retryBackoff time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ship log lines to Loki",
		Long:  "Starts the long-running agent reading log lines from the input and shipping them to the Loki push endpoint until the input is exhausted or the process is interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Logs are shipped once the app wired the agent.
			localLog := conf.Log
			localLog.Ship = false
			if err := log.InitLogger(localLog); err != nil {
				return err
			}

			conf.Loki.RetryBackoff = expbackoff.WithBaseDelay(retryBackoff)

			printFlags(cmd.Context(), cmd.Flags())

			return runFunc(cmd.Context(), conf)
		},
	}

	conf.Loki = loki.DefaultConfig()

	bindLokiFlags(cmd.Flags(), &conf.Loki, &retryBackoff)
	bindInputFlags(cmd.Flags(), &conf)
	bindLogFlags(cmd.Flags(), &conf.Log)

	return cmd
}

func bindLokiFlags(flags *pflag.FlagSet, config *loki.Config, retryBackoff *time.Duration) {
	flags.StringVar(&config.Endpoint, "loki-endpoint", "", "Base URL of the Loki server, e.g. http://localhost:3100. Basic auth credentials may be provided as URL userinfo.")
	flags.StringToStringVar(&config.Labels, "loki-labels", nil, "Default stream labels identifying the log source, e.g. service=lobby,env=prod.")
	flags.StringVar(&config.Username, "loki-username", "", "Basic auth username, overrides the endpoint userinfo.")
	flags.StringVar(&config.Password, "loki-password", "", "Basic auth password, overrides the endpoint userinfo.")
	flags.StringVar(&config.TenantID, "loki-tenant", "", "Loki tenant sent as X-Scope-OrgID header.")
	flags.DurationVar(&config.FlushPeriod, "flush-period", config.FlushPeriod, "Period of flushing buffered lines to Loki.")
	flags.DurationVar(&config.Timeout, "push-timeout", config.Timeout, "Timeout of a single push request.")
	flags.IntVar(&config.Retries, "push-retries", config.Retries, "Number of additional push attempts after a failed push.")
	flags.DurationVar(retryBackoff, "retry-backoff", 0, "Base delay of exponential backoff between push attempts. Zero retries immediately.")
	flags.IntVar(&config.MaxBufferedEntries, "max-buffered-entries", 0, "Maximum number of buffered lines, excess lines are dropped. Zero is unbounded.")
}

func bindInputFlags(flags *pflag.FlagSet, config *app.Config) {
	flags.StringVar(&config.Input, "input", "-", "Path of the input to ship line by line, '-' for stdin. Empty disables the input.")
	flags.StringToStringVar(&config.InputLabels, "input-labels", nil, "Additional stream labels of lines read from the input.")
	flags.StringVar(&config.MonitoringAddr, "monitoring-address", "", "Listening address (ip and port) for the prometheus and health monitoring http server. Empty disables it.")
}

func bindLogFlags(flags *pflag.FlagSet, config *log.Config) {
	flags.StringVar(&config.Level, "log-level", "info", "Log level; debug, info, warn or error")
	flags.StringVar(&config.Format, "log-format", "console", "Log format; console, logfmt or json")
	flags.StringVar(&config.Color, "log-color", "auto", "Log color; auto, force, disable.")
	flags.BoolVar(&config.Ship, "log-ship", false, "Ship the agent's own logs to Loki with level and topic labels.")
}

// printFlags logs the flag values with secrets redacted.
func printFlags(ctx context.Context, flags *pflag.FlagSet) {
	ctx = log.WithTopic(ctx, "cmd")

	var zfields []z.Field
	flags.VisitAll(func(flag *pflag.Flag) {
		zfields = append(zfields, z.Str(strings.ReplaceAll(flag.Name, "-", "_"), redact(flag.Name, flag.Value.String())))
	})

	log.Info(ctx, "Parsed config", zfields...)
}

// redact returns the flag value with secrets replaced.
func redact(flag, val string) string {
	if redactedFlags[flag] && val != "" {
		return "xxxxx"
	}

	if !strings.Contains(flag, "endpoint") {
		return val
	}

	u, err := url.Parse(val)
	if err != nil || u.User == nil {
		return val
	}

	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}

	return u.String()
}
