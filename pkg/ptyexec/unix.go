package ptyexec

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/creack/pty"
)

// UnixDriver runs commands under a pseudo-terminal pair so tools that probe
// for an interactive terminal behave normally.
type UnixDriver struct {
	logger *slog.Logger
}

func NewUnixDriver(logger *slog.Logger) *UnixDriver {
	return &UnixDriver{logger: logger.With("module", "ptyexec")}
}

func (d *UnixDriver) Run(ctx context.Context, opts Options) (*Result, error) {
	cmd := exec.Command(opts.Command, opts.Args...)
	cmd.Dir = opts.Dir

	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	master, err := pty.Start(cmd)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrToolNotFound
		}

		return nil, err
	}
	defer func() { _ = master.Close() }()

	if opts.Stdin != "" {
		_, _ = master.WriteString(opts.Stdin)
		// EOT so line-reading tools see end of input.
		_, _ = master.Write([]byte{0x04})
	}

	parser := newParser()
	batcher := newMilestoneBatcher(opts.OnMilestone)

	ticker := time.NewTicker(MilestoneCadence)
	defer ticker.Stop()

	readDone := make(chan struct{})

	go func() {
		defer close(readDone)

		buf := make([]byte, 4096)

		for {
			n, readErr := master.Read(buf)
			if n > 0 {
				chunk := buf[:n]
				parser.Feed(chunk)

				if opts.OnMilestone != nil {
					batcher.Feed(stripTerminalNoise(string(chunk)))
				}
			}

			if readErr != nil {
				// The pty returns EIO when the child side closes.
				// That is a clean EOF here, not a failure.
				return
			}
		}
	}()

	var timedOut atomic.Bool

	watchdogDone := make(chan struct{})
	defer close(watchdogDone)

	go func() {
		var timeout <-chan time.Time

		if opts.Timeout > 0 {
			timer := time.NewTimer(opts.Timeout)
			defer timer.Stop()

			timeout = timer.C
		}

		for {
			select {
			case <-ctx.Done():
				_ = cmd.Process.Kill()

				return
			case <-timeout:
				timedOut.Store(true)

				d.logger.Warn("Killing timed out process",
					"command", opts.Command, "timeout", opts.Timeout)
				_ = cmd.Process.Kill()

				return
			case <-ticker.C:
				batcher.Tick()
			case <-readDone:
				return
			case <-watchdogDone:
				return
			}
		}
	}()

	<-readDone
	parser.Flush()

	waitErr := cmd.Wait()

	if timedOut.Load() {
		return nil, ErrTimeout
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	result := &Result{
		Transcript: parser.transcript.String(),
		Content:    parser.FinalContent(),
		Records:    parser.records,
	}

	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	// A non-zero exit with decoded output is still usable; surface the
	// exit code and let the caller decide. Only report waitErr when the
	// process produced nothing at all.
	if waitErr != nil && result.Transcript == "" && len(result.Records) == 0 {
		return result, waitErr
	}

	return result, nil
}
