package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logLevelMap = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// NewLogger builds a zap logger. Production mode writes JSON, anything else writes console lines.
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	level, ok := logLevelMap[cfg.Level]
	if !ok {
		return nil, fmt.Errorf("config: unknown LOG_LEVEL %q", cfg.Level)
	}

	var (
		encoderCfg zapcore.EncoderConfig
		encoder    zapcore.Encoder
	)
	if cfg.Mode == "production" {
		encoderCfg = zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller()), nil
}
