// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

// Package cmd implements the lokilogger command-line interface.
package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nethergamesmc/lokilogger/app"
	"github.com/nethergamesmc/lokilogger/app/errors"
	"github.com/nethergamesmc/lokilogger/app/z"
)

const (
	// The name of our config file, without the file extension because
	// viper supports many different config file languages.
	defaultConfigFilename = "lokilogger"

	// The environment variable prefix of all environment variables bound to our command line flags.
	envPrefix = "lokilogger"
)

// New returns a new root cobra command that handles our command line tool.
func New() *cobra.Command {
	return newRootCmd(
		newVersionCmd(runVersionCmd),
		newRunCmd(app.Run),
	)
}

func newRootCmd(cmds ...*cobra.Command) *cobra.Command {
	root := &cobra.Command{
		Use:   "lokilogger",
		Short: "Lokilogger - Ship log lines to Grafana Loki",
		Long:  `Lokilogger reads log lines and ships them in batches to a Grafana Loki push endpoint in the background.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeConfig(cmd)
		},
		SilenceUsage: true,
	}

	root.AddCommand(cmds...)

	return root
}

// initializeConfig sets up the general viper config and binds the cobra flags to the viper flags.
func initializeConfig(cmd *cobra.Command) error {
	v := viper.New()

	v.SetConfigName(defaultConfigFilename)
	v.AddConfigPath(".")

	// Attempt to read the config file, gracefully ignoring errors
	// caused by a config file not being found. Return an error
	// if we cannot parse the config file.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrap(err, "read config")
		}
	}

	v.SetEnvPrefix(envPrefix)
	// Environment variables can't have dashes in them, so bind them to their equivalent
	// keys with underscores.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	// Bind the current command's flags to viper
	return bindFlags(cmd, v)
}

// bindFlags binds each cobra flag to its associated viper configuration (config file and environment variable).
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Cobra provided flags take priority
		if f.Changed {
			return
		}

		// Define all the viper flag names to check
		viperNames := []string{
			f.Name,
			strings.ReplaceAll(f.Name, "-", "."), // TOML uses "." to indicate hierarchy.
		}

		for _, name := range viperNames {
			if !v.IsSet(name) {
				continue
			}

			val := v.Get(name)
			if err := cmd.Flags().Set(f.Name, flagValue(val)); err != nil {
				lastErr = errors.Wrap(err, "set flag from config", z.Str("flag", f.Name))
			}

			break
		}
	})

	return lastErr
}

// flagValue returns the flag string representation of a config value.
// Config file maps and lists are converted to the comma separated flag form.
func flagValue(val any) string {
	switch v := val.(type) {
	case map[string]any:
		var pairs []string
		for key, value := range v {
			pairs = append(pairs, fmt.Sprintf("%s=%v", key, value))
		}

		sort.Strings(pairs)

		return strings.Join(pairs, ",")
	case []any:
		var items []string
		for _, item := range v {
			items = append(items, fmt.Sprintf("%v", item))
		}

		return strings.Join(items, ",")
	default:
		return fmt.Sprintf("%v", val)
	}
}
