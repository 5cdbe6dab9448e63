// Package logx builds the console logger used by the ttb commands.
package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog logger writing to stderr at the given level
// ("debug", "info", ...). An empty level means info.
func NewLogger(level string) (zerolog.Logger, error) {
	return New(os.Stderr, level)
}

// New is NewLogger with an explicit destination.
func New(out io.Writer, level string) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level: %w", err)
		}
		lvl = parsed
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	zerolog.CallerMarshalFunc = shortCaller
	return zerolog.New(output).Level(lvl).With().Timestamp().Caller().Logger(), nil
}

// shortCaller keeps only the file name, padded so messages line up.
func shortCaller(pc uintptr, file string, line int) string {
	short := file
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			short = file[i+1:]
			break
		}
	}
	return fmt.Sprintf("%-28s", fmt.Sprintf("%s:%d", short, line))
}
