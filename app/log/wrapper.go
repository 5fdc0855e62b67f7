// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package log

import (
	"strings"

	zaplogfmt "github.com/jsternberg/zap-logfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nethergamesmc/lokilogger/app/errors"
)

// AgentWriter is implemented by the loki agent shipping log lines.
type AgentWriter interface {
	Write(line string, labels map[string]string)
}

// multiLogger wraps multiple zap loggers and implements zapLogger.
type multiLogger []zapLogger

func (m multiLogger) Debug(msg string, fields ...zap.Field) {
	for _, l := range m {
		l.Debug(msg, fields...)
	}
}

func (m multiLogger) Info(msg string, fields ...zap.Field) {
	for _, l := range m {
		l.Info(msg, fields...)
	}
}

func (m multiLogger) Warn(msg string, fields ...zap.Field) {
	for _, l := range m {
		l.Warn(msg, fields...)
	}
}

func (m multiLogger) Error(msg string, fields ...zap.Field) {
	for _, l := range m {
		l.Error(msg, fields...)
	}
}

// newAgentLogger returns a logfmt logger writing to the agent.
func newAgentLogger(level zapcore.Level, agent AgentWriter, callerSkip int, opts ...func(*zapcore.EncoderConfig)) *zap.Logger {
	encConfig := zap.NewProductionEncoderConfig()
	encConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	for _, opt := range opts {
		opt(&encConfig)
	}

	core := agentCore{
		LevelEnabler: zap.NewAtomicLevelAt(level),
		enc:          stackEncoder{Encoder: zaplogfmt.NewEncoder(encConfig)},
		agent:        agent,
	}

	return zap.New(core, zap.WithCaller(true), zap.AddCallerSkip(callerSkip))
}

// agentCore is a zapcore.Core writing encoded entries to the agent, labelled by level and topic.
// Entries of the agent's own topic are not shipped.
type agentCore struct {
	zapcore.LevelEnabler
	enc   zapcore.Encoder
	agent AgentWriter
	topic string
}

func (c agentCore) With(fields []zap.Field) zapcore.Core {
	clone := c
	clone.enc = c.enc.Clone()

	for _, f := range fields {
		if f.Key == keyTopic {
			clone.topic = f.String
		}
		f.AddTo(clone.enc)
	}

	return clone
}

func (c agentCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

func (c agentCore) Write(ent zapcore.Entry, fields []zap.Field) error {
	topic := c.topic
	for _, f := range fields {
		if f.Key == keyTopic {
			topic = f.String
		}
	}

	if topic == AgentTopic {
		return nil
	}

	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return errors.Wrap(err, "encode log entry")
	}
	defer buf.Free()

	labels := map[string]string{"level": ent.Level.String()}
	if topic != "" {
		labels[keyTopic] = topic
	}

	c.agent.Write(strings.TrimSuffix(buf.String(), "\n"), labels)

	return nil
}

func (agentCore) Sync() error {
	return nil
}
