package sender

import (
	"context"
	"errors"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestDispatcherRunsJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2})
	var runs atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
			runs.Add(1)
			return nil
		}))
	}
	d.Close()
	assert.Equal(t, int32(10), runs.Load())
	assert.Zero(t, d.ErrorCount())
	assert.ErrorIs(t, d.Enqueue(context.Background(), "x", "", func() error { return nil }), ErrQueueClosed)
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var runs atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		if runs.Add(1) < 3 {
			return syscall.ECONNRESET
		}
		return nil
	}))
	d.Close()
	assert.Equal(t, int32(3), runs.Load())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherDoesNotRetryClientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	var runs atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "delete", "deleteMessage", func() error {
		runs.Add(1)
		return errors.New("telegram: bad request (400)")
	}))
	d.Close()
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "a", "", func() error {
		close(started)
		<-block
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), "b", "", func() error { return nil }))
	assert.ErrorIs(t, d.Enqueue(context.Background(), "c", "", func() error { return nil }), ErrQueueFull)
	close(block)
	d.Close()
}

func TestRedactToken(t *testing.T) {
	msg := `Post "https://api.telegram.org/bot123456:AAH-x_y/sendMessage": EOF`
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": EOF`, RedactToken(msg))
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "http_4xx", classifyError(&tele.Error{Code: 400, Description: "Bad Request"}))
	assert.Equal(t, "http_5xx", classifyError(&tele.Error{Code: 502, Description: "Bad Gateway"}))
	assert.Equal(t, "unknown", classifyError(errors.New("x")))
}
