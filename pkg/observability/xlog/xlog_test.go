package xlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestBuilder_Defaults(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := New().SetOutput(&buf).Build()
	require.NoError(t, err)
	defer func() { assert.NoError(t, cleanup()) }()

	logger.Debug("hidden")
	logger.Info("visible", slog.String("k", "v"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=visible")
	assert.Contains(t, out, "k=v")
}

func TestBuilder_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New().
		SetOutput(&buf).
		SetFormat(" JSON ").
		SetLevelString("debug").
		SetAttrs(Component("xtransport")).
		Build()
	require.NoError(t, err)

	logger.Debug("attempt", Method("GET"), Path("works.get"), StatusCode(200), Attempt(1), RequestID("rid"))

	m := decodeLine(t, &buf)
	assert.Equal(t, "DEBUG", m["level"])
	assert.Equal(t, "xtransport", m[KeyComponent])
	assert.Equal(t, "GET", m[KeyMethod])
	assert.Equal(t, "works.get", m[KeyPath])
	assert.InDelta(t, 200, m[KeyStatusCode], 0)
	assert.InDelta(t, 1, m[KeyAttempt], 0)
	assert.Equal(t, "rid", m[KeyRequestID])
}

func TestBuilder_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New().SetOutput(&buf).SetFormat(FormatJSON).Build()
	require.NoError(t, err)

	logger.Info("config",
		slog.String("Authorization", "Bearer secret"),
		slog.String("api_token", "tok"),
		slog.Group("header", slog.String("token", "x")),
		slog.String("base_url", "https://api.example.com"),
	)

	m := decodeLine(t, &buf)
	assert.Equal(t, RedactedValue, m["Authorization"])
	assert.Equal(t, RedactedValue, m["api_token"])
	header, ok := m["header"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, RedactedValue, header["token"])
	assert.Equal(t, "https://api.example.com", m["base_url"])
}

func TestBuilder_RedactionDisabledAndCustomReplace(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New().
		SetOutput(&buf).
		SetFormat(FormatJSON).
		SetRedactKeys().
		SetReplaceAttr(func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "drop" {
				return slog.Attr{}
			}
			return a
		}).
		Build()
	require.NoError(t, err)

	logger.Info("m", slog.String("token", "visible"), slog.String("drop", "x"))

	m := decodeLine(t, &buf)
	assert.Equal(t, "visible", m["token"])
	assert.NotContains(t, m, "drop")
}

func TestChainReplace(t *testing.T) {
	assert.Nil(t, chainReplace(nil, nil))

	upper := func(_ []string, a slog.Attr) slog.Attr {
		return slog.String(a.Key, a.Value.String()+"!")
	}
	drop := func(_ []string, _ slog.Attr) slog.Attr { return slog.Attr{} }

	fn := chainReplace(upper, nil)
	assert.Equal(t, "v!", fn(nil, slog.String("k", "v")).Value.String())

	fn = chainReplace(drop, upper)
	assert.Equal(t, "", fn(nil, slog.String("k", "v")).Key)
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name string
		b    *Builder
	}{
		{"bad level", New().SetLevelString("verbose")},
		{"bad format", New().SetFormat("xml")},
		{"nil output", New().SetOutput(nil)},
		{"empty rotation file", New().SetRotation(" ", DefaultRotation())},
		{"negative backups", New().SetRotation("x.log", Rotation{MaxBackups: -1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.b.Build()
			assert.Error(t, err)
		})
	}

	// 第一个错误生效
	_, _, err := New().SetFormat("xml").SetRotation("", Rotation{}).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
	assert.False(t, errors.Is(err, ErrEmptyFilename))
}

func TestBuilder_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xrest.log")
	logger, cleanup, err := New().SetRotation(path, Rotation{}).Build()
	require.NoError(t, err)

	logger.Info("to file")
	require.NoError(t, cleanup())
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestBuilder_LevelVar(t *testing.T) {
	var buf bytes.Buffer
	b := New().SetOutput(&buf)
	logger, _, err := b.Build()
	require.NoError(t, err)

	logger.Debug("before")
	b.LevelVar().Set(slog.LevelDebug)
	logger.Debug("after")

	assert.NotContains(t, buf.String(), "before")
	assert.Contains(t, buf.String(), "after")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{" INFO ", LevelInfo},
		{"warning", LevelWarn},
		{"warn", LevelWarn},
		{"Error", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	got, err := ParseLevel("trace")
	assert.ErrorIs(t, err, ErrUnknownLevel)
	assert.Equal(t, LevelInfo, got)
	assert.Equal(t, slog.LevelWarn, LevelWarn.Slog())
}

func TestLevel_Text(t *testing.T) {
	data, err := LevelWarn.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "WARN", string(data))

	var l Level
	require.NoError(t, l.UnmarshalText([]byte("debug")))
	assert.Equal(t, LevelDebug, l)
	assert.Error(t, l.UnmarshalText([]byte("nope")))
	assert.Equal(t, "INFO+2", Level(slog.LevelInfo+2).String())
}

func TestAttrs(t *testing.T) {
	assert.Equal(t, slog.Attr{}, Err(nil))
	assert.Equal(t, slog.String(KeyError, "boom"), Err(errors.New("boom")))
	assert.Equal(t, slog.String(KeyDuration, "1.5s"), Duration(1500*time.Millisecond))
}
