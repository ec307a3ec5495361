package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string    `json:"level"`       // debug, info, warn, error
	Format     string    `json:"format"`      // json, pretty
	OutputFile string    `json:"output_file"` // file path for logs
	Console    bool      `json:"console"`     // also log to console
	Out        io.Writer `json:"-"`           // console destination, stderr when nil
}

// DefaultLogConfig returns sensible defaults. Console output goes to stderr
// so extracted URLs written to stdout stay clean.
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Level:   "info",
		Format:  "pretty",
		Console: true,
	}
}

// SetupLogger configures the global logger
func SetupLogger(config *LogConfig) error {
	if config == nil {
		config = DefaultLogConfig()
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	console := config.Out
	if console == nil {
		console = os.Stderr
	}

	var writers []io.Writer

	if config.Console {
		if config.Format == "pretty" {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:        console,
				TimeFormat: time.Kitchen,
			})
		} else {
			writers = append(writers, console)
		}
	}

	if config.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0755); err != nil {
			return err
		}

		logFile, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}

		writers = append(writers, logFile)
	}

	switch len(writers) {
	case 0:
		log.Logger = zerolog.Nop()
	case 1:
		log.Logger = zerolog.New(writers[0]).With().Timestamp().Logger()
	default:
		log.Logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()
	}

	log.Debug().
		Str("level", config.Level).
		Str("format", config.Format).
		Str("output_file", config.OutputFile).
		Bool("console", config.Console).
		Msg("Logger initialized")

	return nil
}

// GetLogger returns a contextual logger
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// GetResolveLogger returns a logger scoped to one resolution run
func GetResolveLogger(runID, source string) zerolog.Logger {
	return log.With().
		Str("component", "resolver").
		Str("run_id", runID).
		Str("root", source).
		Logger()
}
