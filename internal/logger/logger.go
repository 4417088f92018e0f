// Package logger configures logging for the Retrieva CLI.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr to help users follow the retrieval pipeline.
package logger

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu     sync.Mutex
	shared = build()
)

func build() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return l
}

// L returns the shared logger handed to services at wiring time.
func L() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	return shared
}

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	if v {
		shared.SetLevel(logrus.DebugLevel)
	} else {
		shared.SetLevel(logrus.WarnLevel)
	}
}

// IsVerbose returns true if debug logging is enabled.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return shared.IsLevelEnabled(logrus.DebugLevel)
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	shared.SetOutput(w)
}
