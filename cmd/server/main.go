// Package main is the entry point for the FluxFlow code execution server.
//
// main stays minimal: read configuration from the environment, build the
// execution backend, verify the host can actually run it, and start the
// HTTP server. All real logic lives in the internal packages.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sakif/fluxflow/internal/engine"
	"github.com/sakif/fluxflow/internal/engine/docker"
	"github.com/sakif/fluxflow/internal/engine/language"
	"github.com/sakif/fluxflow/internal/engine/local"
	"github.com/sakif/fluxflow/internal/engine/workspace"
	"github.com/sakif/fluxflow/internal/server"
)

func main() {
	// === 1. SET UP LOGGING ===
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// === 2. READ CONFIGURATION ===
	// Env vars with defaults; a config library would be overkill for four
	// values.
	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	// WORKSPACE_ROOT is where per-request directories are created.
	// Defaults to a fluxflow subdirectory of the OS temp dir.
	workspaceRoot := filepath.Join(os.TempDir(), "fluxflow")
	if envRoot := os.Getenv("WORKSPACE_ROOT"); envRoot != "" {
		workspaceRoot = envRoot
	}

	// === 3. BUILD THE EXECUTION BACKEND ===
	// EXECUTOR=docker selects the pooled-container backend; the default runs
	// code as host subprocesses.
	var exec engine.Executor
	switch backend := os.Getenv("EXECUTOR"); backend {
	case "docker":
		dockerExec, err := docker.New(docker.DefaultConfig(), logger)
		if err != nil {
			logger.Error("failed to initialize docker backend", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer dockerExec.Close()
		exec = dockerExec

	case "", "local":
		// The subprocess backend needs every toolchain on the host PATH.
		// A missing compiler is a deployment problem — refuse to start
		// rather than fail requests at runtime.
		if err := language.Verify(); err != nil {
			logger.Error("toolchain verification failed", slog.String("error", err.Error()))
			os.Exit(1)
		}

		workspaces, err := workspace.NewManager(workspaceRoot)
		if err != nil {
			logger.Error("failed to create workspace root",
				slog.String("root", workspaceRoot),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		exec = local.New(workspaces, local.DefaultConfig(), logger)
		logger.Info("using subprocess backend", slog.String("workspaceRoot", workspaceRoot))

	default:
		logger.Error("unknown EXECUTOR value", slog.String("value", backend))
		os.Exit(1)
	}

	// === 4. CREATE AND START THE SERVER ===
	srv := server.New(server.Config{Port: port}, logger, exec)

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
