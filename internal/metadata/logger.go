package metadata

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogFormat string

const (
	LogFormatAuto LogFormat = "auto"
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// LogOptions selects where Recorder output goes.
// With an empty File, records go to the console stream; otherwise to a
// size-rotated file.
type LogOptions struct {
	Level      slog.Level
	Format     LogFormat
	File       string
	MaxSizeMB  int
	MaxBackups int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the slog logger used by the Recorder.
// The returned closer must be closed on shutdown to flush a rotated file.
func NewLogger(opts LogOptions, console *os.File) (*slog.Logger, io.Closer) {
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		return slog.New(slog.NewJSONHandler(rotating, handlerOpts)), rotating
	}

	if console == nil {
		console = os.Stderr
	}

	if useTextHandler(opts.Format, console) {
		return slog.New(slog.NewTextHandler(console, handlerOpts)), nopCloser{}
	}
	return slog.New(slog.NewJSONHandler(console, handlerOpts)), nopCloser{}
}

func useTextHandler(format LogFormat, console *os.File) bool {
	switch format {
	case LogFormatText:
		return true
	case LogFormatJSON:
		return false
	default:
		fd := console.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
}
