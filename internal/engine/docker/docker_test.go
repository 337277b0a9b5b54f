package docker_test

import (
	"context"
	"os"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fluxflow/internal/engine"
	"github.com/sakif/fluxflow/internal/engine/docker"
)

// Needs a Docker daemon and a sandbox image carrying python3/gcc/g++.
// Set SANDBOX_IMAGE to run, e.g.:
//
//	SANDBOX_IMAGE=fluxflow/sandbox:latest go test ./internal/engine/docker/
func TestDockerExecutor(t *testing.T) {
	if os.Getenv("CI") != "" {
		t.Skip("Skipping docker test in CI environment")
	}
	image := os.Getenv("SANDBOX_IMAGE")
	if image == "" {
		t.Skip("SANDBOX_IMAGE not set")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := docker.DefaultConfig()
	cfg.Image = image
	// reduce pool size for local test speed
	cfg.PoolSize = 1

	exec, err := docker.New(cfg, logger)
	require.NoError(t, err, "Should initialize docker executor without error")
	defer exec.Close()

	// Wait a moment for the pool manager to warm up a container
	time.Sleep(2 * time.Second)

	t.Run("python hello world", func(t *testing.T) {
		res, err := exec.Execute(context.Background(), engine.ExecutionRequest{
			Code:     `print("Hello from the sandbox!")`,
			Language: "python",
		})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 0, res.ExitCode)
		assert.Contains(t, res.Output, "Hello from the sandbox!")
	})

	t.Run("stdin reaches the program", func(t *testing.T) {
		res, err := exec.Execute(context.Background(), engine.ExecutionRequest{
			Code:     "print(input())",
			Language: "python",
			Input:    "ping\n",
		})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Contains(t, res.Output, "ping")
	})

	t.Run("c compile and run", func(t *testing.T) {
		res, err := exec.Execute(context.Background(), engine.ExecutionRequest{
			Code:     "#include <stdio.h>\nint main() { printf(\"built\\n\"); return 0; }",
			Language: "c",
		})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Contains(t, res.Output, "built")
	})

	t.Run("infinite loop times out", func(t *testing.T) {
		res, err := exec.Execute(context.Background(), engine.ExecutionRequest{
			Code:     "while True: pass",
			Language: "python",
		})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, engine.SentinelExitCode, res.ExitCode)
		assert.Contains(t, res.Error, "timed out")
	})

	t.Run("unsupported language is rejected without a container", func(t *testing.T) {
		_, err := exec.Execute(context.Background(), engine.ExecutionRequest{
			Code:     `puts "hi"`,
			Language: "ruby",
		})
		assert.Error(t, err)
	})
}
