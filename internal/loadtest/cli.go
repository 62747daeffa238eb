package loadtest

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/trackrank/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends log records to stdout and to logFile. If logFile is
// empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if logFile == "" {
		logFile = "loadtest_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	os.Stdout.WriteString(`trackrank load tool
===================

Seeds players and maps straight into the records store, submits finishes
concurrently over HTTP and checks the served ranks against the expected ones.

Usage:
  go run ./cmd/loadtest [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -driver string     Records store driver: sqlite or postgres (default "sqlite")
  -dsn string        Records store DSN or SQLite path (default "trackrank.db")
  -players int       Players to seed (default 200)
  -maps int          Maps to seed (default 5)
  -finishes int      Finishes to submit (default 5000)
  -workers int       Concurrent submitters (default CPU cores * 2)
  -samples int       Ranks checked per map (default 50)
  -mappack string    Score a mappack over the seeded maps under this id
  -timeout duration  HTTP request timeout (default 30s)
  -output string     Output file for submitted finishes
  -log string        Log file (default: loadtest_TIMESTAMP.log)
  -verbose           Enable verbose logging
  -help              Show this help message

Examples:
  go run ./cmd/loadtest -finishes 50000 -workers 16
  go run ./cmd/loadtest -driver postgres -dsn postgres://localhost/trackrank -mappack load
`)
}
