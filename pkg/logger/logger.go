package logger

import (
	"fmt"
	"os"

	"quiz_engine_backend/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is a no-op logger until InitLogger runs.
var Log = zap.NewNop()

// atomicLevel lets the level change at runtime without rebuilding Log.
var atomicLevel = zap.NewAtomicLevel()

func level(cfg *config.Config) (zapcore.Level, error) {
	return parseLevel(cfg.Log.Level, cfg.Server.Mode)
}

func parseLevel(name, mode string) (zapcore.Level, error) {
	if name == "" {
		if mode == "debug" {
			return zap.DebugLevel, nil
		}
		return zap.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return lvl, fmt.Errorf("invalid log level %q", name)
	}
	return lvl, nil
}

// InitLogger replaces Log with a console logger, teed into a rotating JSON
// file when log.file is set.
func InitLogger(cfg *config.Config) error {
	lvl, err := level(cfg)
	if err != nil {
		return err
	}
	atomicLevel.SetLevel(lvl)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), atomicLevel),
	}
	if cfg.Log.File != "" {
		// 日志切割
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWriter, atomicLevel))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)).
		With(zap.String("service", "quiz-engine"))
	return nil
}

// ApplyLevel switches the running logger to the level configured in cfg.
func ApplyLevel(cfg *config.Config) error {
	lvl, err := level(cfg)
	if err != nil {
		return err
	}
	if lvl != atomicLevel.Level() {
		Log.Info("Log level changed", zap.Stringer("from", atomicLevel.Level()), zap.Stringer("to", lvl))
		atomicLevel.SetLevel(lvl)
	}
	return nil
}

func Level() zapcore.Level {
	return atomicLevel.Level()
}

func Sync() {
	_ = Log.Sync()
}
