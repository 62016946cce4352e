package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Dir    string // rotating log file directory, empty disables the file
	Level  string // debug|info|warn|error, defaults to info
	Stderr bool   // also write to stderr
}

// NewLogger builds a JSON logger writing to a rotating file under Dir and,
// if requested, to stderr. With neither sink it returns a no-op logger.
func NewLogger(o Options) (*zap.Logger, error) {
	lvl := zap.InfoLevel
	if o.Level != "" {
		l, err := zapcore.ParseLevel(o.Level)
		if err != nil {
			return nil, err
		}
		lvl = l
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"

	var cores []zapcore.Core
	if o.Dir != "" {
		if err := os.MkdirAll(o.Dir, 0o755); err != nil {
			return nil, err
		}
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(o.Dir, "davprobe.log"),
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, lvl))
	}
	if o.Stderr {
		cc := zap.NewDevelopmentEncoderConfig()
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(cc), zapcore.Lock(os.Stderr), lvl))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}
