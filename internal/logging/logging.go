package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init configures the global zap logger. When logFile is non-empty, output
// additionally goes to a size-rotated file.
func Init(logFile string) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zap.InfoLevel),
	}

	if logFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotated), zap.InfoLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	zap.ReplaceGlobals(logger)
}
