// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package app_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nethergamesmc/lokilogger/app"
	"github.com/nethergamesmc/lokilogger/app/log"
	"github.com/nethergamesmc/lokilogger/app/loki"
	"github.com/nethergamesmc/lokilogger/testutil/lokimock"
)

func testConfig(t *testing.T, endpoint string, input string) app.Config {
	t.Helper()

	lokiConf := loki.DefaultConfig()
	lokiConf.Endpoint = endpoint
	lokiConf.Labels = map[string]string{"service": "test"}
	lokiConf.FlushPeriod = 10 * time.Millisecond
	lokiConf.Timeout = time.Second

	return app.Config{
		Log: log.Config{
			Level:  "info",
			Format: "console",
			Color:  "disable",
		},
		Loki:        lokiConf,
		InputLabels: map[string]string{"source": "stdin"},
		Handle:      new(loki.Handle),
		TestConfig: app.TestConfig{
			InputReader: io.NopCloser(strings.NewReader(input)),
		},
	}
}

func TestRunInput(t *testing.T) {
	srv := lokimock.New(t)
	conf := testConfig(t, srv.URL(), "a\nb\n\nc\n")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Returns once the input is exhausted and flushed.
	require.NoError(t, app.Run(ctx, conf))

	require.Equal(t, []string{"a", "b", "c"}, srv.Lines())
	for _, req := range srv.Requests() {
		for _, stream := range req.Body.Streams {
			require.Equal(t, map[string]string{"service": "test", "source": "stdin"}, stream.Stream)
		}
	}

	agent, err := conf.Handle.Lookup()
	require.NoError(t, err)
	require.False(t, agent.Ready())
}

func TestRunShipLogs(t *testing.T) {
	srv := lokimock.New(t)
	conf := testConfig(t, srv.URL(), "input line\n")
	conf.Log.Ship = true
	t.Cleanup(func() {
		require.NoError(t, log.InitLogger(log.DefaultConfig()))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, app.Run(ctx, conf))

	var shipped bool
	for _, req := range srv.Requests() {
		for _, stream := range req.Body.Streams {
			if stream.Stream["topic"] != "input" {
				continue
			}

			require.Equal(t, "info", stream.Stream["level"])
			require.Equal(t, "test", stream.Stream["service"])
			require.Contains(t, stream.Values[0][1], "Input exhausted, shutting down")
			shipped = true
		}
	}
	require.True(t, shipped)
	require.Contains(t, srv.Lines(), "input line")
}

func TestRunCancelled(t *testing.T) {
	srv := lokimock.New(t)
	conf := testConfig(t, srv.URL(), "")
	conf.TestConfig.InputReader = nil // Only run the agent.

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Run(ctx, conf)
	}()

	require.Eventually(t, func() bool {
		agent, err := conf.Handle.Lookup()
		return err == nil && agent.Ready()
	}, 5*time.Second, time.Millisecond)

	agent, err := conf.Handle.Lookup()
	require.NoError(t, err)
	agent.Write("before shutdown", nil)

	cancel()
	require.NoError(t, <-errCh)
	require.Contains(t, srv.Lines(), "before shutdown")
}

func TestRunInvalidConfig(t *testing.T) {
	conf := testConfig(t, "", "")

	err := app.Run(context.Background(), conf)
	require.ErrorContains(t, err, "loki endpoint required")

	conf = testConfig(t, "http://loki:3100", "")
	conf.InputLabels = map[string]string{"bad-label": "x"}

	err = app.Run(context.Background(), conf)
	require.ErrorContains(t, err, "input labels")
}
