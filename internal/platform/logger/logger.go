package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. Text handler on stdout; log aggregation
// downstream handles shipping.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
