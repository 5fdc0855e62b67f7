// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package log

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestCondenseStack(t *testing.T) {
	tests := []struct {
		Input  string
		Output string
	}{
		{
			Input: `github.com/nethergamesmc/lokilogger/app/log_test.TestErrorWrap
	/home/dev/repos/lokilogger/app/log/log_test.go:57
testing.tRunner
	/opt/homebrew/Cellar/go/1.24.2/libexec/src/testing/testing.go:1792`,
			Output: "	app/log/log_test.go:57 .TestErrorWrap",
		},
	}

	for i, test := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			actual := condenseStack(test.Input)
			require.Equal(t, test.Output, actual)
		})
	}
}

type recordingAgent struct {
	lines  []string
	labels []map[string]string
}

func (a *recordingAgent) Write(line string, labels map[string]string) {
	a.lines = append(a.lines, line)
	a.labels = append(a.labels, labels)
}

func TestAgentCoreTopic(t *testing.T) {
	agent := new(recordingAgent)

	l := newAgentLogger(zapcore.InfoLevel, agent, 0, func(config *zapcore.EncoderConfig) {
		config.TimeKey = ""
		config.CallerKey = ""
	})

	l.With(zap.String(keyTopic, "app")).Info("with topic")
	l.With(zap.String(keyTopic, "app")).Warn("field topic overrides", zap.String(keyTopic, "input"))
	l.With(zap.String(keyTopic, AgentTopic)).Warn("dropped")
	l.Info("no topic")
	l.Debug("below level")

	require.Equal(t, []map[string]string{
		{"level": "info", "topic": "app"},
		{"level": "warn", "topic": "input"},
		{"level": "info"},
	}, agent.labels)

	require.Len(t, agent.lines, 3)
	require.Contains(t, agent.lines[0], "level=info msg=\"with topic\" topic=app")
}
