package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestTerminalLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(newTerminalHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func stripANSI(s string) string {
	for _, code := range []string{ansiReset, ansiDim, ansiBold, ansiRed, ansiGreen, ansiYellow, ansiBlue, ansiCyan} {
		s = strings.ReplaceAll(s, code, "")
	}
	return s
}

func TestTerminalHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	newTestTerminalLogger(&buf).Info("server started", "port", 8080)

	out := stripANSI(buf.String())
	assert.Contains(t, out, "INF server started port=8080")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestTerminalHandler_ComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestTerminalLogger(&buf).With("component", "worker")
	logger.Warn("task failed", "task_id", 7)

	out := stripANSI(buf.String())
	assert.Contains(t, out, "WRN [worker] task failed task_id=7")
	assert.NotContains(t, out, "component=")
}

func TestTerminalHandler_QuotesStrings(t *testing.T) {
	var buf bytes.Buffer
	newTestTerminalLogger(&buf).Debug("query", "text", "tuesday evening")

	assert.Contains(t, stripANSI(buf.String()), `text="tuesday evening"`)
}

func TestTerminalHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestTerminalLogger(&buf).WithGroup("http")
	logger.Error("failed", "status", 500, slog.Group("req", "method", "GET"))

	out := stripANSI(buf.String())
	assert.Contains(t, out, "ERR failed")
	assert.Contains(t, out, "http.status=500")
	assert.Contains(t, out, "http.req.method=GET")
}

func TestTerminalHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger.Info("hidden")
	assert.Empty(t, buf.String())
}
