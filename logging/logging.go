// Package logging builds the loggers used by the mapping tools.
package logging

import (
	"github.com/edaniels/golog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLoggerConfig returns a new default logger config.
func NewLoggerConfig() zap.Config {
	// from https://github.com/uber-go/zap/blob/2314926ec34c23ee21f3dd4399438469668f8097/config.go#L135
	// but disable stacktraces, use same keys as prod, and color levels.
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// Options control how NewLogger builds a logger.
type Options struct {
	Debug bool
	// LogFile, when set, additionally writes JSON logs to this rotating file.
	LogFile string
}

// NewLogger returns a named console logger. The returned close function flushes and
// releases the log file, if any.
func NewLogger(name string, opts Options) (golog.Logger, func() error, error) {
	conf := NewLoggerConfig()
	if opts.Debug {
		conf.Level.SetLevel(zap.DebugLevel)
	}
	base, err := conf.Build()
	if err != nil {
		return nil, nil, err
	}

	if opts.LogFile == "" {
		return base.Sugar().Named(name), func() error {
			//nolint:errcheck
			base.Sync()
			return nil
		}, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.LogFile,
		MaxSize:    64,
		MaxBackups: 2,
		Compress:   true,
	}
	fileEncoder := conf.EncoderConfig
	fileEncoder.EncodeLevel = zapcore.CapitalLevelEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoder), zapcore.AddSync(rotator), conf.Level)
	logger := base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
	closer := func() error {
		//nolint:errcheck
		logger.Sync()
		return rotator.Close()
	}
	return logger.Sugar().Named(name), closer, nil
}
