package shared

import (
	"os"

	"github.com/charmbracelet/log"
)

// SetupLogger configures console logging to stderr.
func SetupLogger(debug bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// ApplyLogLevel sets the level from a config string. Unknown levels are
// left as-is rather than failing startup.
func ApplyLogLevel(logger *log.Logger, level string) {
	if level == "" {
		return
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		logger.Warn("unknown log level, keeping default", "level", level)
		return
	}
	logger.SetLevel(parsed)
}
