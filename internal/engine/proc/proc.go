// Package proc runs one bounded subprocess: argv-vector spawn, stdin feed,
// concurrent capped capture of stdout/stderr, and hard wall-clock timeout
// with process-group kill.
package proc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Command describes one subprocess invocation.
//
// Argv is a discrete argument vector — it is never joined into a shell
// command line, so source content and filenames cannot inject into a shell.
type Command struct {
	Argv           []string
	Dir            string        // working directory (the workspace)
	Stdin          string        // written to the child's stdin, then closed
	Timeout        time.Duration // hard wall-clock deadline
	MaxOutputBytes int           // per-stream capture cap
}

// Outcome reports what the subprocess did. On a normal exit ExitCode is the
// real status; on timeout TimedOut is set and ExitCode is -1 (the kernel
// reports no exit status for a SIGKILLed process).
type Outcome struct {
	Stdout          string
	Stderr          string
	ExitCode        int
	TimedOut        bool
	StdoutTruncated bool
	StderrTruncated bool
	Duration        time.Duration
}

// Run spawns the command and blocks until it exits or the deadline fires.
//
// An error return means the process could not be observed at all (bad argv,
// spawn failure) — user code never ran and no Outcome exists. Everything the
// user's program does, including crashing, is reported through Outcome.
func Run(ctx context.Context, cmd Command) (Outcome, error) {
	if len(cmd.Argv) == 0 {
		return Outcome{}, fmt.Errorf("empty command")
	}

	c := exec.Command(cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	// Own process group: the timeout kill must take out any children the
	// untrusted program forked, not just the direct child.
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := c.StdinPipe()
	if err != nil {
		return Outcome{}, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := c.StdoutPipe()
	if err != nil {
		return Outcome{}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		return Outcome{}, fmt.Errorf("stderr pipe: %w", err)
	}

	start := time.Now()
	if err := c.Start(); err != nil {
		return Outcome{}, fmt.Errorf("starting process: %w", err)
	}

	// Feed stdin and close it so interactive reads see EOF instead of
	// blocking forever. A write error (EPIPE) just means the program exited
	// without reading its input — not a failure.
	go func() {
		if cmd.Stdin != "" {
			_, _ = io.WriteString(stdin, cmd.Stdin)
		}
		_ = stdin.Close()
	}()

	// Drain both streams concurrently with the child's execution. Reading
	// after exit would deadlock as soon as output exceeds the OS pipe
	// buffer; reading sequentially deadlocks when stderr fills while we sit
	// on stdout.
	outBuf := &cappedBuffer{max: cmd.MaxOutputBytes}
	errBuf := &cappedBuffer{max: cmd.MaxOutputBytes}

	var drain sync.WaitGroup
	drain.Add(2)
	go func() {
		defer drain.Done()
		_, _ = io.Copy(outBuf, stdout)
	}()
	go func() {
		defer drain.Done()
		_, _ = io.Copy(errBuf, stderr)
	}()

	// Wait must not run until the drain goroutines are done — it closes the
	// pipes out from under them otherwise.
	done := make(chan error, 1)
	go func() {
		drain.Wait()
		done <- c.Wait()
	}()

	timer := time.NewTimer(cmd.Timeout)
	defer timer.Stop()

	timedOut := false
	select {
	case <-done:
		// Exited on its own. The Wait error (non-zero exit) is reflected in
		// ProcessState below.
	case <-timer.C:
		timedOut = true
		killGroup(c.Process.Pid)
		<-done // pipes EOF once the group is gone
	case <-ctx.Done():
		killGroup(c.Process.Pid)
		<-done
		return Outcome{}, ctx.Err()
	}

	exitCode := c.ProcessState.ExitCode() // -1 when killed by signal
	return Outcome{
		Stdout:          outBuf.String(),
		Stderr:          errBuf.String(),
		ExitCode:        exitCode,
		TimedOut:        timedOut,
		StdoutTruncated: outBuf.truncated,
		StderrTruncated: errBuf.truncated,
		Duration:        time.Since(start),
	}, nil
}

// killGroup SIGKILLs the whole process group. No graceful signal first — the
// payload is untrusted and may ignore anything short of SIGKILL.
func killGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

// cappedBuffer stores at most max bytes and notes when it had to drop any.
// Writes past the cap still succeed so io.Copy keeps draining the pipe —
// truncation must not stall or terminate the process.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if remaining := b.max - b.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			p = p[:remaining]
			b.truncated = true
		}
		b.buf.Write(p)
	} else if n > 0 {
		b.truncated = true
	}
	return n, nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
