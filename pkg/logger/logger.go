// Package logger описывает логгер, которым пользуется сервис, и его реализацию поверх zap.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger — минимальный интерфейс логирования в стиле printf.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(err error, format string, args ...any)
	With(key string, value any) Logger
	Sync() error
}

type zapLogger struct {
	l *zap.SugaredLogger
}

// NewZapLogger создаёт JSON-логгер в stdout с полями service и env.
// Если задан LOG_FILE, записи дублируются в файл.
func NewZapLogger(service, env string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stdout"}

	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		if err := ensureLogFile(logFile); err != nil {
			return nil, fmt.Errorf("prepare log file: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
		cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, logFile)
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		level, err := zapcore.ParseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.InitialFields = map[string]any{
		"service": service,
		"env":     env,
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return &zapLogger{l: l.Sugar()}, nil
}

// MustNewZapLogger как NewZapLogger, но паникует при ошибке.
func MustNewZapLogger(service, env string) Logger {
	l, err := NewZapLogger(service, env)
	if err != nil {
		panic(err)
	}
	return l
}

// NewNop возвращает логгер, который ничего не пишет. Используется в тестах.
func NewNop() Logger {
	return &zapLogger{l: zap.NewNop().Sugar()}
}

func (z *zapLogger) Debugf(format string, args ...any) {
	z.l.Debugf(format, args...)
}

func (z *zapLogger) Infof(format string, args ...any) {
	z.l.Infof(format, args...)
}

func (z *zapLogger) Warnf(format string, args ...any) {
	z.l.Warnf(format, args...)
}

func (z *zapLogger) Errorf(err error, format string, args ...any) {
	z.l.With(zap.Error(err)).Errorf(format, args...)
}

func (z *zapLogger) With(key string, value any) Logger {
	return &zapLogger{l: z.l.With(key, value)}
}

// Sync сбрасывает буферизованные записи. Вызывается при остановке.
func (z *zapLogger) Sync() error {
	return z.l.Sync()
}

func ensureLogFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		f, createErr := os.OpenFile(path, os.O_CREATE, 0o644)
		if createErr != nil {
			return createErr
		}
		_ = f.Close()
	}
	return nil
}
