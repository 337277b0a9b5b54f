// Package engine defines the code execution contract: the request/result
// types shared by every backend and the Executor interface the transport
// layer calls into.
package engine

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/sakif/fluxflow/internal/apperror"
	"github.com/sakif/fluxflow/internal/engine/language"
)

// Resource caps enforced per request. These are product limits, not tunables:
// they hold regardless of load or backend.
const (
	// MaxCodeLength is the maximum size of submitted source, in characters.
	MaxCodeLength = 10000
	// MaxOutputBytes caps each captured stream (stdout and stderr separately).
	MaxOutputBytes = 50000
	// DefaultTimeout is the wall-clock budget for one request. Compile and
	// run stages share it; a stuck compiler counts against it like a stuck
	// program.
	DefaultTimeout = 5 * time.Second
	// SentinelExitCode is reported when no real exit code exists: the process
	// was killed on timeout or never ran at all. Distinct from every real
	// 0–255 exit status.
	SentinelExitCode = -1
)

// ExecutionRequest represents a request to execute code in one of the
// supported languages.
type ExecutionRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Input    string `json:"input"` // fed to the program's stdin, may be empty
}

// ExecutionResult is the single outcome produced for every request.
// Immutable after construction; exactly one is produced per request.
type ExecutionResult struct {
	Success         bool          `json:"success"`
	Output          string        `json:"output"`
	Error           string        `json:"error"`
	ExitCode        int           `json:"exitCode"`
	Language        string        `json:"language"`
	OutputTruncated bool          `json:"outputTruncated,omitempty"`
	ErrorTruncated  bool          `json:"errorTruncated,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// Executor is the core interface for running untrusted code in an isolated
// environment.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}

// ValidateRequest checks a request before any filesystem or subprocess work.
// A request that fails here must never allocate a workspace.
func ValidateRequest(req ExecutionRequest) error {
	if req.Code == "" {
		return apperror.ValidationFailed("code", "code is required")
	}
	if utf8.RuneCountInString(req.Code) > MaxCodeLength {
		return apperror.ValidationFailed("code", "code exceeds the 10000 character limit")
	}
	if req.Language == "" {
		return apperror.ValidationFailed("language", "language is required")
	}
	if _, err := language.Lookup(req.Language); err != nil {
		return err
	}
	return nil
}
