package ptyexec

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnixDriverDecodesStructuredOutput(t *testing.T) {
	d := NewUnixDriver(slog.Default())

	script := `printf '{"type":"assistant","message":{"content":[{"type":"text","text":"working on it"}]}}\n{"type":"result","result":"all done"}\n'`

	result, err := d.Run(context.Background(), Options{
		Command: "sh",
		Args:    []string{"-c", script},
		Timeout: 10 * time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, "all done", result.Content)
	assert.Len(t, result.Records, 2)
	assert.Equal(t, 0, result.ExitCode)
}

func TestUnixDriverTimeout(t *testing.T) {
	d := NewUnixDriver(slog.Default())

	_, err := d.Run(context.Background(), Options{
		Command: "sleep",
		Args:    []string{"30"},
		Timeout: 100 * time.Millisecond,
	})

	require.ErrorIs(t, err, ErrTimeout)
}

func TestUnixDriverToolNotFound(t *testing.T) {
	d := NewUnixDriver(slog.Default())

	_, err := d.Run(context.Background(), Options{
		Command: "no-such-binary-for-sure",
	})

	require.ErrorIs(t, err, ErrToolNotFound)
}

func TestUnixDriverEmptyTranscriptIsSuccess(t *testing.T) {
	d := NewUnixDriver(slog.Default())

	result, err := d.Run(context.Background(), Options{
		Command: "true",
		Timeout: 10 * time.Second,
	})

	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Equal(t, 0, result.ExitCode)
}
