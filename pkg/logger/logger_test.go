package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"skytally/pkg/config"
)

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zlog := zerolog.New(buf).Level(zerolog.DebugLevel)
	return &zerologLogger{logger: &zlog, fields: make(map[string]interface{})}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level json", &config.LoggingConfig{Level: "debug", JSON: true}, false},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}, false},
		{"invalid level", &config.LoggingConfig{Level: "chatty"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestFileOutputWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skytally.log")
	l, err := New(&config.LoggingConfig{Level: "info", File: path, JSON: true})
	require.NoError(t, err)

	l.WithField("query", "#brasil").Info("collection finished")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"query":"#brasil"`)
	assert.Contains(t, string(data), `"app":"skytally"`)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.WithField("endpoint", "https://public.api.bsky.app/xrpc").
		WithFields(map[string]interface{}{"page": 2, "items": 100}).
		InfoWithFields("page fetched", map[string]interface{}{"has_cursor": true})

	out := buf.String()
	assert.Contains(t, out, "page fetched")
	assert.Contains(t, out, `"endpoint":"https://public.api.bsky.app/xrpc"`)
	assert.Contains(t, out, `"page":2`)
	assert.Contains(t, out, `"items":100`)
	assert.Contains(t, out, `"has_cursor":true`)
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := newBufferLogger(&buf)

	_ = parent.WithField("run_id", "abc")
	parent.Info("parent message")

	assert.NotContains(t, buf.String(), "run_id")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	assert.Same(t, l, l.WithError(nil))

	l.WithError(errors.New("throttled by server")).Error("request failed")
	assert.Contains(t, buf.String(), "throttled by server")
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.DebugWithFields("all types", map[string]interface{}{
		"int64":    int64(7),
		"duration": 2 * time.Second,
		"strings":  []string{"a", "b"},
		"err":      errors.New("boom"),
		"custom":   struct{ Name string }{Name: "x"},
	})

	out := buf.String()
	assert.Contains(t, out, `"int64":7`)
	assert.Contains(t, out, `"strings":["a","b"]`)
	assert.Contains(t, out, `"err":"boom"`)
	assert.Contains(t, out, `"custom":{"Name":"x"}`)
}

func TestGlobalLogger(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "disabled"}))
	assert.NotNil(t, GetLogger())

	// must not panic
	Debug("debug")
	WithField("k", "v").Info("with field")
	WithError(errors.New("e")).Warn("with error")
}

func TestConsoleWriterColor(t *testing.T) {
	var plain, colored bytes.Buffer

	plainLogger := zerolog.New(newConsoleWriter(&plain, false))
	plainLogger.Warn().Str("endpoint", "public").Msg("throttled")
	coloredLogger := zerolog.New(newConsoleWriter(&colored, true))
	coloredLogger.Warn().Str("endpoint", "public").Msg("throttled")

	assert.NotContains(t, plain.String(), "\033[")
	assert.Contains(t, plain.String(), "WARN")
	assert.Contains(t, plain.String(), "endpoint:")
	assert.Contains(t, colored.String(), "\033[33mWARN\033[0m")
}

func TestColorDisabledByNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, colorEnabled(os.Stderr))
}
