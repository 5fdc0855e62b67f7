// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package log

import (
	"fmt"
	"strings"
	"time"

	zaplogfmt "github.com/jsternberg/zap-logfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/nethergamesmc/lokilogger/app/errors"
	"github.com/nethergamesmc/lokilogger/app/z"
)

const (
	// moduleDir prefixes the source paths kept in condensed stack traces.
	moduleDir = "lokilogger/"
	// msgWidth is the console column width of messages, so fields align.
	msgWidth = 40
	// topicWidth is the console column width of topics.
	topicWidth = 10
)

// newStructuredLogger returns a logfmt or json logger with condensed stack traces.
func newStructuredLogger(format string, level zapcore.Level, ws zapcore.WriteSyncer, callerSkip int,
	opts ...func(*zapcore.EncoderConfig),
) (*zap.Logger, error) {
	encConfig := zap.NewProductionEncoderConfig()
	encConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	for _, opt := range opts {
		opt(&encConfig)
	}

	var enc zapcore.Encoder
	switch format {
	case "logfmt":
		enc = zaplogfmt.NewEncoder(encConfig)
	case "json":
		enc = zapcore.NewJSONEncoder(encConfig)
	default:
		return nil, errors.New("invalid logger format; not console, logfmt or json", z.Str("format", format))
	}

	return zap.New(
		zapcore.NewCore(stackEncoder{Encoder: enc}, ws, zap.NewAtomicLevelAt(level)),
		zap.WithCaller(true),
		zap.AddCallerSkip(callerSkip),
	), nil
}

// newConsoleLogger returns a human readable logger: time, level, topic, padded message and fields.
func newConsoleLogger(level zapcore.Level, color bool, ws zapcore.WriteSyncer) *zap.Logger {
	encConfig := zap.NewDevelopmentEncoderConfig()
	encConfig.ConsoleSeparator = " "
	encConfig.EncodeLevel = shortLevelEncoder(color)
	encConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly + ".000")

	enc := consoleEncoder{
		Encoder: zapcore.NewConsoleEncoder(encConfig),
		color:   color,
	}

	return zap.New(zapcore.NewCore(enc, ws, zap.NewAtomicLevelAt(level)))
}

// stackEncoder condenses "stacktrace" fields to this module's frames.
type stackEncoder struct {
	zapcore.Encoder
}

func (e stackEncoder) Clone() zapcore.Encoder {
	return stackEncoder{Encoder: e.Encoder.Clone()}
}

func (e stackEncoder) EncodeEntry(ent zapcore.Entry, fields []zap.Field) (*buffer.Buffer, error) {
	for i, f := range fields {
		if f.Key != keyStack {
			continue
		}

		// Fields are shared by all loggers of a multiLogger.
		fields = append([]zap.Field(nil), fields...)
		fields[i].String = condenseStack(f.String)
		ent.Stack = ""

		break
	}

	return e.Encoder.EncodeEntry(ent, fields)
}

// consoleEncoder renders the "topic" field as the logger name and the "stacktrace" field as the
// entry's stack, it pads both the topic and the message and omits the caller.
type consoleEncoder struct {
	zapcore.Encoder
	color bool
}

func (e consoleEncoder) Clone() zapcore.Encoder {
	return consoleEncoder{Encoder: e.Encoder.Clone(), color: e.color}
}

func (e consoleEncoder) EncodeEntry(ent zapcore.Entry, fields []zap.Field) (*buffer.Buffer, error) {
	var rest []zap.Field

	for _, f := range fields {
		switch f.Key {
		case keyStack:
			ent.Stack = condenseStack(f.String)
		case keyTopic:
			ent.LoggerName = f.String
		default:
			rest = append(rest, f)
		}
	}

	ent.LoggerName = fmt.Sprintf("%-*s", topicWidth, ent.LoggerName)
	if e.color {
		ent.LoggerName = colorize(ent.LoggerName, 32) // Green
	}

	ent.Message = fmt.Sprintf("%-*s", msgWidth, ent.Message)
	ent.Caller.Defined = false

	return e.Encoder.EncodeEntry(ent, rest)
}

// condenseStack returns the zap stack frames of this module's source, one "\t<path>:<line> .<func>" line each.
// zap stacks alternate function lines and tab indented location lines.
func condenseStack(stack string) string {
	lines := strings.Split(stack, "\n")

	var frames []string
	for i := 0; i+1 < len(lines); i += 2 {
		fn, loc := lines[i], lines[i+1]

		j := strings.LastIndex(loc, moduleDir)
		if j < 0 {
			continue // Dependency or stdlib frame.
		}

		if k := strings.LastIndex(fn, "."); k > 0 {
			fn = fn[k:]
		}

		frames = append(frames, "\t"+loc[j+len(moduleDir):]+" "+fn)
	}

	return strings.Join(frames, "\n")
}

var (
	shortLevels = map[zapcore.Level]string{
		zapcore.DebugLevel: "DEBG",
		zapcore.InfoLevel:  "INFO",
		zapcore.WarnLevel:  "WARN",
		zapcore.ErrorLevel: "ERRO",
	}
	levelColors = map[zapcore.Level]uint8{
		zapcore.DebugLevel: 35, // Magenta
		zapcore.InfoLevel:  34, // Blue
		zapcore.WarnLevel:  33, // Yellow
		zapcore.ErrorLevel: 31, // Red
	}
)

// shortLevelEncoder encodes levels as 4 capital characters, optionally colored.
func shortLevelEncoder(color bool) zapcore.LevelEncoder {
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		s, ok := shortLevels[l]
		if !ok {
			s = l.CapitalString()
		}

		if c, ok := levelColors[l]; ok && color {
			s = colorize(s, c)
		}

		enc.AppendString(s)
	}
}

func colorize(s string, color uint8) string {
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", color, s)
}
