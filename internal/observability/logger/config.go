package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config viene de app.app_env / log.level en config.yaml.
type Config struct {
	// "prod" => JSON con stacktrace en errores; cualquier otro valor => consola.
	Env   string
	Level string

	ServiceName string
	Version     string
}

func build(cfg Config) *zap.Logger {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	zcfg := zap.NewDevelopmentConfig()
	opts := []zap.Option{zap.AddCaller()}
	if strings.EqualFold(strings.TrimSpace(cfg.Env), "prod") {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		zcfg.DisableStacktrace = true
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := zcfg.Build(opts...)
	if err != nil {
		l = zap.NewNop()
	}

	var base []zap.Field
	if cfg.ServiceName != "" {
		base = append(base, zap.String("service", cfg.ServiceName))
	}
	if cfg.Version != "" {
		base = append(base, zap.String("version", cfg.Version))
	}
	return l.With(base...)
}
