// Package local implements the execution engine as direct host subprocesses:
// per-request workspace, optional compile stage, bounded run stage.
//
// The pipeline per request is Validate → (CompileIfNeeded) → Run → Classify.
// The workspace is created up front and destroyed by defer, so every branch —
// compile failure, timeout, spawn error, panic — releases it.
package local

import (
	"context"
	"log/slog"
	"time"

	"github.com/sakif/fluxflow/internal/engine"
	"github.com/sakif/fluxflow/internal/engine/language"
	"github.com/sakif/fluxflow/internal/engine/proc"
	"github.com/sakif/fluxflow/internal/engine/workspace"
)

// binaryName is the compiled artifact's filename inside the workspace.
const binaryName = "program"

// Config holds the tunables for the subprocess backend.
type Config struct {
	// Timeout is the wall-clock budget shared by the compile and run stages.
	Timeout time.Duration
	// MaxOutputBytes caps each captured stream.
	MaxOutputBytes int
}

// DefaultConfig returns the product limits.
func DefaultConfig() Config {
	return Config{
		Timeout:        engine.DefaultTimeout,
		MaxOutputBytes: engine.MaxOutputBytes,
	}
}

// Executor runs code as host subprocesses. It implements engine.Executor.
type Executor struct {
	workspaces *workspace.Manager
	config     Config
	logger     *slog.Logger
}

// New creates a subprocess Executor backed by the given workspace manager.
func New(ws *workspace.Manager, cfg Config, logger *slog.Logger) *Executor {
	return &Executor{
		workspaces: ws,
		config:     cfg,
		logger:     logger,
	}
}

// Execute runs one request end to end and always produces exactly one
// ExecutionResult. The error return is reserved for rejected input and
// transport-level cancellation; everything that happens after a workspace
// exists is reported through the result.
func (e *Executor) Execute(ctx context.Context, req engine.ExecutionRequest) (*engine.ExecutionResult, error) {
	start := time.Now()

	// Rejected input never allocates a workspace or spawns anything.
	if err := engine.ValidateRequest(req); err != nil {
		return nil, err
	}
	pipeline, err := language.Lookup(req.Language)
	if err != nil {
		return nil, err
	}

	ws, err := e.workspaces.Create()
	if err != nil {
		e.logger.Error("workspace creation failed", slog.String("error", err.Error()))
		return engine.InternalResult(req.Language, start), nil
	}
	defer func() {
		if err := ws.Destroy(); err != nil {
			e.logger.Error("workspace cleanup failed",
				slog.String("workspace", ws.ID),
				slog.String("error", err.Error()),
			)
		}
	}()

	sourcePath, err := ws.WriteSource(req.Code, pipeline.Extension)
	if err != nil {
		e.logger.Error("writing source failed",
			slog.String("workspace", ws.ID),
			slog.String("error", err.Error()),
		)
		return engine.InternalResult(req.Language, start), nil
	}
	binaryPath := ws.Path(binaryName)

	// One budget for the whole request: the run stage gets whatever the
	// compile stage left over.
	deadline := start.Add(e.config.Timeout)

	if pipeline.HasCompileStage() {
		outcome, err := proc.Run(ctx, proc.Command{
			Argv:           pipeline.CompileArgv(sourcePath, binaryPath),
			Dir:            ws.Dir,
			Timeout:        time.Until(deadline),
			MaxOutputBytes: e.config.MaxOutputBytes,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Error("compile spawn failed",
				slog.String("language", req.Language),
				slog.String("error", err.Error()),
			)
			return engine.InternalResult(req.Language, start), nil
		}
		if outcome.TimedOut {
			return engine.TimeoutResult(req.Language, e.config.Timeout, start), nil
		}
		if outcome.ExitCode != 0 {
			// Short-circuit: the run stage never executes.
			return engine.CompileFailureResult(req.Language, outcome, start), nil
		}
		if !time.Now().Before(deadline) {
			return engine.TimeoutResult(req.Language, e.config.Timeout, start), nil
		}
	}

	outcome, err := proc.Run(ctx, proc.Command{
		Argv:           pipeline.RunArgv(sourcePath, binaryPath),
		Dir:            ws.Dir,
		Stdin:          req.Input,
		Timeout:        time.Until(deadline),
		MaxOutputBytes: e.config.MaxOutputBytes,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Error("run spawn failed",
			slog.String("language", req.Language),
			slog.String("error", err.Error()),
		)
		return engine.InternalResult(req.Language, start), nil
	}
	if outcome.TimedOut {
		return engine.TimeoutResult(req.Language, e.config.Timeout, start), nil
	}
	return engine.RunResult(req.Language, outcome, start), nil
}
