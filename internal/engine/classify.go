package engine

import (
	"fmt"
	"time"

	"github.com/sakif/fluxflow/internal/engine/proc"
)

// The classifier maps raw process outcomes onto the result taxonomy, in
// priority order: internal failure, compile failure, timeout, then plain
// exit-code reporting. Every terminal state of a pipeline lands in exactly
// one of these constructors, whichever backend produced the outcome.

// InternalResult covers failures before or around user code: workspace I/O,
// spawn errors, sandbox setup. The diagnostic stays generic — host paths and
// error chains go to the log, not the caller.
func InternalResult(lang string, start time.Time) *ExecutionResult {
	return &ExecutionResult{
		Success:  false,
		Error:    "internal error: execution environment unavailable",
		ExitCode: SentinelExitCode,
		Language: lang,
		Duration: time.Since(start),
	}
}

// TimeoutResult covers both stages: a compiler that eats the budget is as
// much runaway work as a spinning program.
func TimeoutResult(lang string, timeout time.Duration, start time.Time) *ExecutionResult {
	return &ExecutionResult{
		Success:  false,
		Error:    fmt.Sprintf("execution timed out after %s", timeout),
		ExitCode: SentinelExitCode,
		Language: lang,
		Duration: time.Since(start),
	}
}

// CompileFailureResult reports the compiler's streams and exit code verbatim.
// Compile errors are expected and common; the caller wants the diagnostics.
func CompileFailureResult(lang string, o proc.Outcome, start time.Time) *ExecutionResult {
	return &ExecutionResult{
		Success:         false,
		Output:          o.Stdout,
		Error:           o.Stderr,
		ExitCode:        o.ExitCode,
		Language:        lang,
		OutputTruncated: o.StdoutTruncated,
		ErrorTruncated:  o.StderrTruncated,
		Duration:        time.Since(start),
	}
}

// RunResult reports a completed run. Success follows the exit code alone:
// stderr may be non-empty on success, and truncation is not a failure.
func RunResult(lang string, o proc.Outcome, start time.Time) *ExecutionResult {
	return &ExecutionResult{
		Success:         o.ExitCode == 0,
		Output:          o.Stdout,
		Error:           o.Stderr,
		ExitCode:        o.ExitCode,
		Language:        lang,
		OutputTruncated: o.StdoutTruncated,
		ErrorTruncated:  o.StderrTruncated,
		Duration:        time.Since(start),
	}
}
