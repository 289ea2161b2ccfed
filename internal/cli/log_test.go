package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	logger.Info("test message")
	if buf.Len() == 0 {
		t.Error("logger should have written output")
	}
}

func TestNewLoggerFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug message should be filtered at info level, got %q", buf.String())
	}
}

func TestLoggerContext(t *testing.T) {
	logger := newLogger(&bytes.Buffer{}, log.DebugLevel)
	ctx := withLogger(context.Background(), logger)

	if got := loggerFromContext(ctx); got != logger {
		t.Error("loggerFromContext() should return the attached logger")
	}
	if got := loggerFromContext(context.Background()); got == nil {
		t.Error("loggerFromContext() without a logger should fall back to the default")
	}
}
