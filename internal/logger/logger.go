package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "starlit-server"

// Config содержит настройки логгера сервиса.
type Config struct {
	Level      string // debug, info, warn, error
	Encoding   string // json или console
	OutputPath string // пусто = stdout
	// Development добавляет caller и стектрейсы для ошибок
	Development bool
}

// New собирает zap.Logger. Неизвестный уровень понижается до info,
// неизвестная кодировка до json.
func New(cfg Config) (*zap.Logger, error) {
	encoding := parseEncoding(cfg.Encoding)
	outputs := []string{"stdout"}
	if cfg.OutputPath != "" {
		outputs = []string{cfg.OutputPath}
	}

	zapConfig := zap.Config{
		Level:             parseLevel(cfg.Level),
		Development:       cfg.Development,
		DisableCaller:     !cfg.Development,
		DisableStacktrace: !cfg.Development,
		Encoding:          encoding,
		EncoderConfig:     encoderConfig(encoding),
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		InitialFields:     map[string]interface{}{"service": serviceName},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

func parseLevel(raw string) zap.AtomicLevel {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if raw == "" {
		return level
	}
	if err := level.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
		// логгера еще нет
		fmt.Fprintf(os.Stderr, "Invalid log level '%s', using 'info'. Error: %v\n", raw, err)
		level.SetLevel(zap.InfoLevel)
	}
	return level
}

func parseEncoding(raw string) string {
	if strings.EqualFold(raw, "console") {
		return "console"
	}
	return "json"
}

func encoderConfig(encoding string) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if encoding == "console" {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg
}
