// Package docker implements the execution engine on pooled sandbox
// containers. It is an alternative backend behind the same engine.Executor
// interface as the subprocess one, for hosts that want container isolation
// instead of bare host processes.
package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/fluxflow/internal/engine"
	"github.com/sakif/fluxflow/internal/engine/language"
	"github.com/sakif/fluxflow/internal/engine/proc"
)

// Executor implements the engine.Executor interface using Docker.
type Executor struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pool   *Pool
}

// New creates a new Docker Executor and initializes the connection.
func New(cfg Config, logger *slog.Logger) (*Executor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	// Make sure the sandbox image is pulled before accepting requests
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger.Info("ensuring sandbox image is available", slog.String("image", cfg.Image))
	reader, err := cli.ImagePull(ctx, cfg.Image, image.PullOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()
	// Read everything to block until the pull is complete
	io.Copy(io.Discard, reader)
	logger.Info("sandbox image is ready")

	exec := &Executor{
		cli:    cli,
		config: cfg,
		logger: logger,
	}

	exec.pool = NewPool(cli, cfg, logger)
	exec.pool.Start()

	return exec, nil
}

// Close shuts down the executor pool and docker client.
func (e *Executor) Close() error {
	e.pool.Stop()
	return e.cli.Close()
}

// Execute runs one request in a pooled container: copy the source in, exec
// the compile stage if the language has one, then exec the run stage with
// the request's stdin. The container is single-use and force-removed on
// every path, which also kills anything the payload left running.
func (e *Executor) Execute(ctx context.Context, req engine.ExecutionRequest) (*engine.ExecutionResult, error) {
	start := time.Now()

	if err := engine.ValidateRequest(req); err != nil {
		return nil, err
	}
	pipeline, err := language.Lookup(req.Language)
	if err != nil {
		return nil, err
	}

	containerID, err := e.pool.GetContainer(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Error("failed to get container from pool", slog.String("error", err.Error()))
		return engine.InternalResult(req.Language, start), nil
	}

	// Always remove the container we acquired, whatever happened inside it.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := e.cli.ContainerRemove(cleanupCtx, containerID, container.RemoveOptions{
			Force: true,
		})
		if err != nil {
			e.logger.Error("failed to remove container", slog.String("id", containerID), slog.String("error", err.Error()))
		}
	}()

	sourceName := "main" + pipeline.Extension
	if err := e.copySource(ctx, containerID, sourceName, req.Code); err != nil {
		e.logger.Error("failed to copy source into container",
			slog.String("id", containerID),
			slog.String("error", err.Error()),
		)
		return engine.InternalResult(req.Language, start), nil
	}

	// Paths inside the container; both stages share one wall-clock budget.
	sourcePath := e.config.Workdir + "/" + sourceName
	binaryPath := e.config.Workdir + "/program"
	deadline := start.Add(e.config.Timeout)

	if pipeline.HasCompileStage() {
		outcome, err := e.execCommand(ctx, containerID, pipeline.CompileArgv(sourcePath, binaryPath), "", time.Until(deadline))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Error("compile exec failed", slog.String("error", err.Error()))
			return engine.InternalResult(req.Language, start), nil
		}
		if outcome.TimedOut {
			return engine.TimeoutResult(req.Language, e.config.Timeout, start), nil
		}
		if outcome.ExitCode != 0 {
			return engine.CompileFailureResult(req.Language, outcome, start), nil
		}
		if !time.Now().Before(deadline) {
			return engine.TimeoutResult(req.Language, e.config.Timeout, start), nil
		}
	}

	outcome, err := e.execCommand(ctx, containerID, pipeline.RunArgv(sourcePath, binaryPath), req.Input, time.Until(deadline))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Error("run exec failed", slog.String("error", err.Error()))
		return engine.InternalResult(req.Language, start), nil
	}
	if outcome.TimedOut {
		return engine.TimeoutResult(req.Language, e.config.Timeout, start), nil
	}
	return engine.RunResult(req.Language, outcome, start), nil
}

// copySource tars the source file and copies it into the container workdir.
func (e *Executor) copySource(ctx context.Context, containerID, name, code string) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(code)),
		ModTime: time.Now(),
	}); err != nil {
		return fmt.Errorf("write tar header: %w", err)
	}
	if _, err := io.WriteString(tw, code); err != nil {
		return fmt.Errorf("write tar contents: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar writer: %w", err)
	}

	return e.cli.CopyToContainer(ctx, containerID, e.config.Workdir, bytes.NewReader(buf.Bytes()), container.CopyToContainerOptions{})
}

// execCommand runs one argv in the container with the same discipline as the
// subprocess runner: stdin written then closed, both streams drained
// concurrently into capped buffers, hard deadline. On timeout the exec is
// abandoned; the caller's container removal kills it.
func (e *Executor) execCommand(ctx context.Context, containerID string, argv []string, stdin string, timeout time.Duration) (proc.Outcome, error) {
	start := time.Now()

	execResp, err := e.cli.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   e.config.Workdir,
		Cmd:          argv,
	})
	if err != nil {
		return proc.Outcome{}, fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := e.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return proc.Outcome{}, fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attachResp.Close()

	// Feed stdin and signal EOF so interactive reads terminate.
	go func() {
		if stdin != "" {
			_, _ = attachResp.Conn.Write([]byte(stdin))
		}
		_ = attachResp.CloseWrite()
	}()

	outBuf := newCappedWriter(e.config.MaxOutputBytes)
	errBuf := newCappedWriter(e.config.MaxOutputBytes)

	done := make(chan struct{})
	go func() {
		// stdcopy demultiplexes stdout from stderr on the single stream
		_, _ = stdcopy.StdCopy(outBuf, errBuf, attachResp.Reader)
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		return proc.Outcome{
			Stdout:          outBuf.String(),
			Stderr:          errBuf.String(),
			ExitCode:        engine.SentinelExitCode,
			TimedOut:        true,
			StdoutTruncated: outBuf.truncated,
			StderrTruncated: errBuf.truncated,
			Duration:        time.Since(start),
		}, nil
	case <-ctx.Done():
		return proc.Outcome{}, ctx.Err()
	}

	inspectResp, err := e.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return proc.Outcome{}, fmt.Errorf("failed to inspect exec: %w", err)
	}

	return proc.Outcome{
		Stdout:          outBuf.String(),
		Stderr:          errBuf.String(),
		ExitCode:        inspectResp.ExitCode,
		StdoutTruncated: outBuf.truncated,
		StderrTruncated: errBuf.truncated,
		Duration:        time.Since(start),
	}, nil
}

// cappedWriter mirrors the subprocess runner's capture discipline: keep at
// most max bytes, keep draining past the cap, remember that bytes were
// dropped.
type cappedWriter struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func newCappedWriter(max int) *cappedWriter {
	return &cappedWriter{max: max}
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if remaining := w.max - w.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			p = p[:remaining]
			w.truncated = true
		}
		w.buf.Write(p)
	} else if n > 0 {
		w.truncated = true
	}
	return n, nil
}

func (w *cappedWriter) String() string {
	return w.buf.String()
}
