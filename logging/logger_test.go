package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer, level LogLevel) *HookLogger {
	cfg := DefaultLoggerConfig()
	cfg.Output = buf
	cfg.Level = level
	cfg.Component = "test"
	return NewLogger(cfg)
}

func decode(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	return records
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LogLevelDebug, false},
		{"INFO", LogLevelInfo, false},
		{"", LogLevelInfo, false},
		{" warning ", LogLevelWarn, false},
		{"error", LogLevelError, false},
		{"loud", LogLevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestHookLogger_Context(t *testing.T) {
	var buf bytes.Buffer
	base := newTestLogger(&buf, LogLevelDebug)

	l := base.WithDispatch("save", "d-1").WithContext("plugin", "audit")
	l.Info("dispatched", "count", 2)
	base.Debug("plain")

	records := decode(t, &buf)
	require.Len(t, records, 2)

	assert.Equal(t, "dispatched", records[0]["msg"])
	assert.Equal(t, "test", records[0]["component"])
	assert.Equal(t, "save", records[0]["hook"])
	assert.Equal(t, "d-1", records[0]["dispatch_id"])
	assert.Equal(t, "audit", records[0]["plugin"])
	assert.Equal(t, float64(2), records[0]["count"])

	assert.NotContains(t, records[1], "hook", "With* helpers do not modify the receiver")
	assert.NotContains(t, records[1], "plugin")
}

func TestHookLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LogLevelWarn)
	d := l.WithDispatch("save", "d-1")

	l.Debug("hidden")
	l.Info("hidden")
	l.LogRegistration("save", "name:cb", 10, 1, true)
	d.LogDispatch("action", 1, time.Millisecond, nil)
	l.Warn("shown")
	d.LogDispatch("action", 1, time.Millisecond, errors.New("boom"))

	records := decode(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, "shown", records[0]["msg"])
	assert.Equal(t, "hook.dispatch.error", records[1]["msg"])
	assert.Equal(t, "boom", records[1]["error"])
	assert.Equal(t, "save", records[1]["hook"])
	assert.Equal(t, "d-1", records[1]["dispatch_id"])
}

func TestHookLogger_Registration(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LogLevelDebug)

	l.LogRegistration("save", "name:cb", 10, 2, true)
	l.LogRegistration("save", "name:cb", 10, 0, false)

	records := decode(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, "hook.register", records[0]["msg"])
	assert.Equal(t, float64(2), records[0]["arity"])
	assert.Equal(t, "hook.unregister", records[1]["msg"])
	assert.NotContains(t, records[1], "arity")
}

func TestHookLogger_OddArgs(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LogLevelDebug).WithComponent("registry")

	l.Error("odd", "key")

	records := decode(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "registry", records[0]["component"])
	assert.Equal(t, "key", records[0]["!BADKEY"])
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Info("x", "k", "v")
		l.Warn("x")
		l.Error("x")
	})
}
