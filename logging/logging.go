package logging

import (
	"io"
	"os"

	"github.com/op/go-logging"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/config"
)

var Logger = logging.MustGetLogger("main")

var logFormat = logging.MustStringFormatter(
	`%{time:2006-01-02 15:04:05.000} %{shortfile} %{level:.4s} %{message}`,
)

// InitLogger wires the console and/or rotating-file backends described
// by the log config. Call once at startup before anything logs.
func InitLogger(logConfig *config.LogConfig) {
	var backends []logging.Backend
	if logConfig.UseConsoleLogger {
		consoleBackend := logging.NewBackendFormatter(
			logging.NewLogBackend(os.Stdout, "", 0), logFormat)
		backends = append(backends, consoleBackend)
	}
	if logConfig.UseFileLogger {
		fileWriter := &lumberjack.Logger{
			Filename:   logConfig.Filename,
			MaxSize:    logConfig.MaxFileSizeInMB,
			MaxBackups: logConfig.MaxBackupsOfLogFiles,
			MaxAge:     logConfig.MaxAgeToRetainLogFilesInDays,
			Compress:   logConfig.Compress,
		}
		fileBackend := logging.NewBackendFormatter(
			logging.NewLogBackend(io.Writer(fileWriter), "", 0), logFormat)
		backends = append(backends, fileBackend)
	}
	logging.SetBackend(backends...)

	levelName := logConfig.Level
	if levelName == "" {
		levelName = "INFO"
	}
	level, err := logging.LogLevel(levelName)
	if err != nil {
		panic(err)
	}
	logging.SetLevel(level, "main")
}
