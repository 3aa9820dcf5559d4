// Package ptyexec runs CLI tools that require an interactive terminal,
// decoding their output into a clean transcript, structured records and
// rate-limited progress milestones.
package ptyexec

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrTimeout indicates the child process exceeded its wall-clock
	// budget and was terminated.
	ErrTimeout = errors.New("process timed out")

	// ErrToolNotFound indicates the target binary does not exist. Callers
	// fall back to simulation instead of retrying.
	ErrToolNotFound = errors.New("tool not found")
)

// RecordType classifies a structured output record by its type tag.
type RecordType string

const (
	RecordAssistant RecordType = "assistant"
	RecordDelta     RecordType = "content_block_delta"
	RecordResult    RecordType = "result"
	RecordOther     RecordType = "other"
)

// Record is one JSON line emitted by the child process.
type Record struct {
	Type RecordType      `json:"type"`
	Text string          `json:"text,omitempty"`
	Raw  json.RawMessage `json:"raw"`
}

// Result holds everything decoded from a finished process.
type Result struct {
	// Transcript is the full decoded text with terminal escapes removed.
	Transcript string
	// Content is the assembled assistant text from structured records.
	Content string
	// Records is the ordered list of parsed structured records.
	Records []Record
	// ExitCode is the child's exit status, 0 on success.
	ExitCode int
}

// Options configures one process run.
type Options struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
	Stdin   string
	// Timeout is the wall-clock budget. Zero means no timeout.
	Timeout time.Duration
	// OnMilestone, when set, receives coarse progress labels at a fixed
	// cadence. It is called from the read goroutine and must not block.
	OnMilestone func(label string)
}

// Driver executes a command under a pseudo-terminal.
type Driver interface {
	Run(ctx context.Context, opts Options) (*Result, error)
}
