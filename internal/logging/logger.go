// Package logging builds the arbor logger shared by every component.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"

	"policyrag/internal/config"
)

// New returns a logger writing to the console when console is true and to
// cfg.File when set. With neither, logging is discarded.
func New(cfg config.LoggingConfig, console bool) arbor.ILogger {
	if !console && cfg.File == "" {
		return Discard()
	}
	logger := arbor.NewLogger()

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to create log directory: %v\n", err)
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   cfg.File,
				TimeFormat: "15:04:05",
				MaxSize:    50 * 1024 * 1024,
				MaxBackups: 3,
				OutputType: models.OutputFormatLogfmt,
			})
		}
	}

	if console {
		logger = logger.WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: "15:04:05",
		})
	}

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	return logger.WithLevelFromString(level)
}

// Discard returns a logger that drops every event. Its writer is private, so
// writers registered globally by New are never reached.
func Discard() arbor.ILogger {
	return arbor.NewLogger().WithWriters([]writers.IWriter{discardWriter{}})
}

type discardWriter struct{}

func (w discardWriter) WithLevel(log.Level) writers.IWriter { return w }
func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
func (discardWriter) GetFilePath() string { return "" }
func (discardWriter) Close() error { return nil }
