package tool

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/moyoez/gcomserver-go/types"
)

var DefaultLogger = log.Default()

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func InitLogger() {
	DefaultLogger.SetTimeFormat("2006-01-02 15:04:05")
	DefaultLogger.SetReportCaller(true)
}

// ParseLogLevel accepts none|low|high as well as the dev|prod names of the -log flag.
func ParseLogLevel(s string) (types.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "0":
		return types.LogNone, nil
	case "low", "prod", "1", "":
		return types.LogLow, nil
	case "high", "dev", "2":
		return types.LogHigh, nil
	}
	return types.LogLow, fmt.Errorf("unknown log level %q", s)
}

// LevelFor maps a verbosity setting onto a logger level. "none" still lets
// errors through, so a failed run always logs its final outcome.
func LevelFor(level types.LogLevel) log.Level {
	switch level {
	case types.LogNone:
		return log.ErrorLevel
	case types.LogHigh:
		return log.DebugLevel
	default:
		return log.InfoLevel
	}
}

// ApplyLogConfig sets the level of DefaultLogger and, when logFile is set,
// redirects it to that file. The returned closer releases the file.
func ApplyLogConfig(level types.LogLevel, logFile string) (io.Closer, error) {
	DefaultLogger.SetLevel(LevelFor(level))
	if logFile == "" || level == types.LogNone {
		return nopCloser{}, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nopCloser{}, fmt.Errorf("open log file: %v", err)
	}
	DefaultLogger.SetOutput(f)
	return f, nil
}

// NewLogger returns a child of DefaultLogger tagged with a prefix, so every
// component logs through the configured output and level.
func NewLogger(prefix string) *log.Logger {
	return DefaultLogger.WithPrefix(prefix)
}
