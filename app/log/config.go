// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package log

import (
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/moby/term"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nethergamesmc/lokilogger/app/errors"
	"github.com/nethergamesmc/lokilogger/app/z"
)

const (
	defaultCallerSkip = 2 // Skip the level function and logAt.
	keyStack          = "stacktrace"
	keyTopic          = "topic"

	// AgentTopic is the topic of the agent's own diagnostics, these logs are never shipped.
	AgentTopic = "loki"
)

// zapLogger abstracts a zap logger.
type zapLogger interface {
	Debug(string, ...zap.Field)
	Info(string, ...zap.Field)
	Warn(string, ...zap.Field)
	Error(string, ...zap.Field)
}

var (
	initMu sync.RWMutex
	// logger is the global logger, console logs to stderr until InitLogger is called.
	logger zapLogger = newConsoleLogger(zapcore.DebugLevel, true, zapcore.Lock(os.Stderr))
)

// Config defines the logging configuration.
type Config struct {
	Level  string // debug, info, warn or error
	Format string // console or json or logfmt
	Color  string // disable, force or auto
	Ship   bool   // Ship logs to Loki via the agent provided to InitLogger.
}

// DefaultConfig returns the default logging config.
func DefaultConfig() Config {
	return Config{
		Level:  zapcore.DebugLevel.String(),
		Format: "console",
	}
}

// zapLevel returns the configured zapcore level.
func (c Config) zapLevel() (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return 0, errors.Wrap(err, "parse level")
	}

	return level, nil
}

// colored returns true if the console output should be colored, auto colors terminals only.
func (c Config) colored() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(c.Color)) {
	case "disable":
		return false, nil
	case "force":
		return true, nil
	case "auto", "":
		return term.IsTerminal(os.Stderr.Fd()), nil
	default:
		return false, errors.New("invalid --log-color value", z.Str("value", c.Color))
	}
}

// InitOption configures InitLogger.
type InitOption func(*initOptions)

type initOptions struct {
	agent AgentWriter
}

// WithAgent returns an InitOption that ships logs via the provided agent if Config.Ship is enabled.
func WithAgent(agent AgentWriter) InitOption {
	return func(o *initOptions) {
		o.agent = agent
	}
}

// InitLogger replaces the global logger by one writing to stderr in the configured format.
// With Config.Ship it also writes every log to the agent, except the agent's own diagnostics.
func InitLogger(config Config, opts ...InitOption) error {
	var o initOptions
	for _, opt := range opts {
		opt(&o)
	}

	if config.Ship && o.agent == nil {
		return errors.New("log shipping enabled without an agent")
	}

	level, err := config.zapLevel()
	if err != nil {
		return err
	}

	color, err := config.colored()
	if err != nil {
		return err
	}

	callerSkip := defaultCallerSkip
	if config.Ship {
		callerSkip++ // Skip the multiLogger.
	}

	stderr := zapcore.Lock(os.Stderr)

	var local zapLogger = newConsoleLogger(level, color, stderr)
	if config.Format != "console" {
		structured, err := newStructuredLogger(config.Format, level, stderr, callerSkip)
		if err != nil {
			return err
		}
		local = structured
	}

	initMu.Lock()
	defer initMu.Unlock()

	if !config.Ship {
		logger = local
	} else {
		logger = multiLogger{local, newAgentLogger(level, o.agent, callerSkip)}
	}

	return nil
}

// InitJSONForT initialises a json logger writing to ws for testing purposes.
func InitJSONForT(t *testing.T, ws zapcore.WriteSyncer, opts ...func(*zapcore.EncoderConfig)) {
	t.Helper()

	l, err := newStructuredLogger("json", zapcore.DebugLevel, ws, defaultCallerSkip, opts...)
	require.NoError(t, err)

	initMu.Lock()
	defer initMu.Unlock()

	logger = l
}
