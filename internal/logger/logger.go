// Package logger centralizes logrus setup for the analyzer binaries.
//
// Design goals:
//   - One place to configure level, format and output
//   - Optional rotating file output for long batch runs
//   - Call sites import logrus directly and just log
package logger

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls global logging behavior.
type Options struct {
	Level   string // "error", "info", "debug", "trace"
	LogFile string // when set, logs also rotate into this file
}

// Init configures the global logrus logger. Called once at startup.
func Init(opts Options) {
	lvl, err := log.ParseLevel(opts.Level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	var out io.Writer = os.Stderr
	if opts.LogFile != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	log.SetOutput(out)
}
