package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

const (
	logFileName      = "seoforge.log"
	logFileMaxSize   = 100 * 1024 * 1024
	logFileBackups   = 3
	defaultLogFormat = "15:04:05"
)

// DefaultLogDir is the logs directory next to the executable
func DefaultLogDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return "logs"
	}
	return filepath.Join(filepath.Dir(execPath), "logs")
}

// LogDir returns the configured log directory or DefaultLogDir
func LogDir(config *Config) string {
	if config.Logging.Dir != "" {
		return config.Logging.Dir
	}
	return DefaultLogDir()
}

// InitLogger builds the arbor logger for the configured outputs and level.
// "file" writes a rotating seoforge.log under LogDir; "stdout" and "console"
// both mean the console writer.
func InitLogger(config *Config) arbor.ILogger {
	logger := arbor.NewLogger()

	timeFormat := config.Logging.TimeFormat
	if timeFormat == "" {
		timeFormat = defaultLogFormat
	}
	textOutput := config.Logging.Format != "json"

	var toFile, toConsole bool
	for _, output := range config.Logging.Output {
		switch output {
		case "file":
			toFile = true
		case "stdout", "console":
			toConsole = true
		}
	}

	if toFile {
		dir := LogDir(config)
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: file logging disabled, cannot create %s: %v\n", dir, err)
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   filepath.Join(dir, logFileName),
				TimeFormat: timeFormat,
				MaxSize:    logFileMaxSize,
				MaxBackups: logFileBackups,
				TextOutput: textOutput,
			})
		}
	}

	if toConsole {
		logger = logger.WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: timeFormat,
			TextOutput: true,
		})
	}

	return logger.WithLevelFromString(config.Logging.Level)
}
