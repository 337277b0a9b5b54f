package local_test

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fluxflow/internal/apperror"
	"github.com/sakif/fluxflow/internal/engine"
	"github.com/sakif/fluxflow/internal/engine/local"
	"github.com/sakif/fluxflow/internal/engine/workspace"
)

// These tests run real toolchains; each one skips when its interpreter or
// compiler is not installed on the host.

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available on PATH", name)
	}
}

func newTestExecutor(t *testing.T, cfg local.Config) (*local.Executor, string) {
	t.Helper()
	root := t.TempDir()
	ws, err := workspace.NewManager(root)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return local.New(ws, cfg, logger), root
}

func TestExecutePythonHelloWorld(t *testing.T) {
	requireTool(t, "python3")
	e, _ := newTestExecutor(t, local.DefaultConfig())

	res, err := e.Execute(context.Background(), engine.ExecutionRequest{
		Code:     `print("Hello, World!")`,
		Language: "python",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Hello, World!\n", res.Output)
	assert.Empty(t, res.Error)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "python", res.Language)
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestExecutePythonReadsStdin(t *testing.T) {
	requireTool(t, "python3")
	e, _ := newTestExecutor(t, local.DefaultConfig())

	res, err := e.Execute(context.Background(), engine.ExecutionRequest{
		Code:     "name = input()\nprint(f\"hello {name}\")",
		Language: "python",
		Input:    "world\n",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "hello world\n", res.Output)
}

func TestExecutePythonSyntaxError(t *testing.T) {
	requireTool(t, "python3")
	e, _ := newTestExecutor(t, local.DefaultConfig())

	// Python has no separate compile stage — the interpreter's traceback
	// arrives as a run failure.
	res, err := e.Execute(context.Background(), engine.ExecutionRequest{
		Code:     `print("missing paren"`,
		Language: "python",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEqual(t, 0, res.ExitCode)
	assert.Contains(t, res.Error, "SyntaxError")
	assert.Empty(t, res.Output)
}

func TestExecuteCHelloWorldAndExitCode(t *testing.T) {
	requireTool(t, "gcc")
	e, _ := newTestExecutor(t, local.DefaultConfig())

	t.Run("hello world", func(t *testing.T) {
		res, err := e.Execute(context.Background(), engine.ExecutionRequest{
			Code:     "#include <stdio.h>\nint main() { printf(\"Hello, World!\\n\"); return 0; }",
			Language: "c",
		})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "Hello, World!\n", res.Output)
		assert.Equal(t, 0, res.ExitCode)
	})

	t.Run("non-zero exit code surfaces", func(t *testing.T) {
		res, err := e.Execute(context.Background(), engine.ExecutionRequest{
			Code:     "int main() { return 7; }",
			Language: "c",
		})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, 7, res.ExitCode)
	})

	t.Run("compile failure short-circuits the run", func(t *testing.T) {
		res, err := e.Execute(context.Background(), engine.ExecutionRequest{
			Code:     "int main( { return 0; }",
			Language: "c",
		})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.NotEqual(t, 0, res.ExitCode)
		assert.NotEmpty(t, res.Error)
	})
}

func TestExecuteCppHelloWorld(t *testing.T) {
	requireTool(t, "g++")
	e, _ := newTestExecutor(t, local.DefaultConfig())

	res, err := e.Execute(context.Background(), engine.ExecutionRequest{
		Code:     "#include <iostream>\nint main() { std::cout << \"Hello, World!\" << std::endl; return 0; }",
		Language: "cpp",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Hello, World!\n", res.Output)
	assert.Equal(t, 0, res.ExitCode)
}

func TestExecuteTimeout(t *testing.T) {
	requireTool(t, "python3")
	cfg := local.DefaultConfig()
	cfg.Timeout = 1 * time.Second // keep the test fast
	e, _ := newTestExecutor(t, cfg)

	start := time.Now()
	res, err := e.Execute(context.Background(), engine.ExecutionRequest{
		Code:     "while True:\n    pass",
		Language: "python",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, engine.SentinelExitCode, res.ExitCode)
	assert.Contains(t, res.Error, "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecuteOutputTruncation(t *testing.T) {
	requireTool(t, "python3")
	e, _ := newTestExecutor(t, local.DefaultConfig())

	res, err := e.Execute(context.Background(), engine.ExecutionRequest{
		Code:     `print("x" * 1000000)`,
		Language: "python",
	})
	require.NoError(t, err)
	assert.Len(t, res.Output, engine.MaxOutputBytes)
	assert.True(t, res.OutputTruncated)
	// Truncation reflects the cap, not a failure — the program exited 0.
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.ExitCode)
}

func TestExecuteUnsupportedLanguageCreatesNoWorkspace(t *testing.T) {
	e, root := newTestExecutor(t, local.DefaultConfig())

	_, err := e.Execute(context.Background(), engine.ExecutionRequest{
		Code:     `puts "hi"`,
		Language: "ruby",
	})
	assert.ErrorIs(t, err, apperror.ErrUnsupportedLanguage)

	entries, readErr := os.ReadDir(root)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "rejected input must not allocate a workspace")
}

func TestExecuteCleansUpWorkspace(t *testing.T) {
	requireTool(t, "python3")
	e, root := newTestExecutor(t, local.DefaultConfig())

	for _, code := range []string{
		`print("fine")`,       // success
		`raise SystemExit(3)`, // runtime failure
	} {
		_, err := e.Execute(context.Background(), engine.ExecutionRequest{
			Code:     code,
			Language: "python",
		})
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "every exit path must destroy its workspace")
}

func TestExecuteIsIdempotent(t *testing.T) {
	requireTool(t, "python3")
	e, _ := newTestExecutor(t, local.DefaultConfig())

	req := engine.ExecutionRequest{
		Code:     "print(sum(range(10)))",
		Language: "python",
	}

	first, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	second, err := e.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Success, second.Success)
	assert.Equal(t, first.Output, second.Output)
	assert.Equal(t, first.Error, second.Error)
	assert.Equal(t, first.ExitCode, second.ExitCode)
}
