package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := Logger(&zapLogger{logger: zap.New(core)}).With(String("disk", "azure"))

	logger.Info("signed",
		Bool("upload", true),
		Int("port", 8080),
		Int64("expires_at", 1633046400),
		Duration("elapsed", 1500*time.Millisecond),
		ErrorField(errors.New("boom")),
	)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "azure", fields["disk"])
		assert.Equal(t, true, fields["upload"])
		assert.Equal(t, int64(8080), fields["port"])
		assert.Equal(t, int64(1633046400), fields["expires_at"])
		assert.Equal(t, int64(1500), fields["elapsed"])
		assert.Equal(t, "boom", fields["error"])
	}
}
