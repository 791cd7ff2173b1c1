package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderLine(t *testing.T, ctx context.Context, format logFormat, component string, level slog.Level, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	LogEvent(ctx, slog.New(handler).With("component", component), level, event, attrs...)
	require.NoError(t, aw.Flush())
	require.NoError(t, aw.Close())
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	line := renderLine(t, ctx, formatKV, "flow", slog.LevelInfo, "step.advanced",
		slog.String("status", "OK"),
		slog.String("flow", "slide"),
	)

	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=flow", "event=step.advanced", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "flow=slide"}
	require.GreaterOrEqual(t, len(tokens), len(expected), line)
	for i, prefix := range expected {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-json")
	line := renderLine(t, ctx, formatJSON, "approval", slog.LevelError, "approval.edit_failed",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
	)

	require.True(t, strings.HasPrefix(line, "{"), line)
	pos := -1
	for _, pref := range []string{`{"ts":`, `"level":"ERROR"`, `"component":"approval"`, `"event":"approval.edit_failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"err":"boom"`} {
		idx := strings.Index(line, pref)
		require.Greater(t, idx, pos, "prefix %s out of order in %s", pref, line)
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	raw := "123:456:789"
	line := renderLine(t, WithRID(context.Background(), raw), formatKV, "app", slog.LevelInfo, "rid.test")
	assert.Contains(t, line, "rid="+CompactRID(raw))
	assert.NotContains(t, line, "rid_full=")

	line = renderLine(t, WithRID(context.Background(), raw), formatJSON, "app", slog.LevelInfo, "rid.test")
	assert.Contains(t, line, `"rid":"`+CompactRID(raw)+`"`)
	assert.Contains(t, line, `"rid_full":"`+raw+`"`)
	assert.Contains(t, line, `"ts_unix_nano"`)
}

func TestStructuredHandlerDurationKeys(t *testing.T) {
	line := renderLine(t, context.Background(), formatKV, "tg", slog.LevelInfo, "handler.done",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Duration("backoff", 2*time.Second),
	)
	assert.Contains(t, line, "duration_ms=2")
	assert.Contains(t, line, "backoff_ms=2000")
}

func TestCompactRID(t *testing.T) {
	assert.Equal(t, "c.y.1k", CompactRID("12:34:56"))
	assert.Equal(t, "not-a-rid", CompactRID("not-a-rid"))
	assert.Equal(t, "1:x:2", CompactRID("1:x:2"))
}

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, "ab\ncd", Sanitize("a\x00b\ncd\u200b"))
	assert.Equal(t, "Али", SanitizeLimit("Алишер", 3))
	assert.Empty(t, SanitizeLimit("x", 0))
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	assert.Equal(t, []bool{true, false, false, true}, got)

	s.Set(0, 0)
	assert.True(t, s.Allow())

	num, den := parseRatioSpec("2/5")
	assert.Equal(t, [2]int{2, 5}, [2]int{num, den})
	num, den = parseRatioSpec("10")
	assert.Equal(t, [2]int{1, 10}, [2]int{num, den})
}
