/*
 * Copyright 2025 SREDiag Authors
 * Copyright 2023 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logging provides the leveled logger shared by the shmx packages.
package logging

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors the numeric levels accepted by SHMX_LOG_LEVEL.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelNoPrint
)

// EnvLogLevel selects the default level of loggers built by this package.
const EnvLogLevel = "SHMX_LOG_LEVEL"

// traceLevel sits below zap's debug level.
const traceLevel = zapcore.DebugLevel - 1

var levelNames = []string{"trace", "debug", "info", "warn", "error", "off"}

func (l Level) String() string {
	if l < LevelTrace || l > LevelNoPrint {
		return "Level(" + strconv.Itoa(int(l)) + ")"
	}
	return levelNames[l]
}

// ParseLevel accepts either the numeric form (0-5) or a level name.
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < int(LevelTrace) || n > int(LevelNoPrint) {
			return 0, fmt.Errorf("log level %d out of range", n)
		}
		return Level(n), nil
	}
	switch s {
	case "warning":
		return LevelWarn, nil
	case "none":
		return LevelNoPrint, nil
	}
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelTrace:
		return traceLevel
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.FatalLevel + 1
	}
}

// Logger is a named, leveled logger.
type Logger struct {
	name  string
	level zap.AtomicLevel
	sugar *zap.SugaredLogger
}

var defaultLogger = mustNew("shmx", levelFromEnv())

func levelFromEnv() Level {
	if v := os.Getenv(EnvLogLevel); v != "" {
		if l, err := ParseLevel(v); err == nil {
			return l
		}
	}
	return LevelWarn
}

// Default returns the package logger. Its level comes from SHMX_LOG_LEVEL and
// falls back to warn.
func Default() *Logger {
	return defaultLogger
}

// New builds a console logger writing to stdout.
func New(name string, level Level) (*Logger, error) {
	atom := zap.NewAtomicLevelAt(level.zapLevel())
	cfg := zap.Config{
		Level:             atom,
		Encoding:          "console",
		EncoderConfig:     encoderConfig(),
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}
	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{name: name, level: atom, sugar: zl.Named(name).Sugar()}, nil
}

func mustNew(name string, level Level) *Logger {
	l, err := New(name, level)
	if err != nil {
		return Nop()
	}
	return l
}

// FromZap wraps an existing zap logger. The level of the wrapped core applies.
func FromZap(zl *zap.Logger) *Logger {
	return &Logger{name: "", level: zap.NewAtomicLevelAt(traceLevel), sugar: zl.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{level: zap.NewAtomicLevelAt(LevelNoPrint.zapLevel()), sugar: zap.NewNop().Sugar()}
}

func encoderConfig() zapcore.EncoderConfig {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.999999")
	ec.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		if l == traceLevel {
			enc.AppendString("\x1b[95mTRACE\x1b[0m")
			return
		}
		zapcore.CapitalColorLevelEncoder(l, enc)
	}
	return ec
}

// SetLevel changes the level of l. Loggers built with FromZap ignore it.
func (l *Logger) SetLevel(level Level) {
	if level <= LevelNoPrint {
		l.level.SetLevel(level.zapLevel())
	}
}

// Named returns a child logger with name appended.
func (l *Logger) Named(name string) *Logger {
	return &Logger{name: l.name + "." + name, level: l.level, sugar: l.sugar.Named(name)}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{name: l.name, level: l.level, sugar: l.sugar.With(kv...)}
}

func (l *Logger) Tracef(format string, a ...interface{}) {
	l.sugar.Logf(traceLevel, format, a...)
}

func (l *Logger) Debugf(format string, a ...interface{}) {
	l.sugar.Debugf(format, a...)
}

func (l *Logger) Infof(format string, a ...interface{}) {
	l.sugar.Infof(format, a...)
}

func (l *Logger) Warnf(format string, a ...interface{}) {
	l.sugar.Warnf(format, a...)
}

func (l *Logger) Errorf(format string, a ...interface{}) {
	l.sugar.Errorf(format, a...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
