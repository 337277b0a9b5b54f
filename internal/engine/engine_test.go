package engine_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/fluxflow/internal/apperror"
	"github.com/sakif/fluxflow/internal/engine"
	"github.com/sakif/fluxflow/internal/engine/proc"
)

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       engine.ExecutionRequest
		wantErr   error // nil means the request is valid
		wantField string
	}{
		{
			name: "valid python request",
			req:  engine.ExecutionRequest{Code: "print(1)", Language: "python"},
		},
		{
			name: "valid request with input",
			req:  engine.ExecutionRequest{Code: "input()", Language: "python", Input: "42\n"},
		},
		{
			name:      "empty code",
			req:       engine.ExecutionRequest{Language: "python"},
			wantErr:   apperror.ErrValidation,
			wantField: "code",
		},
		{
			name:      "oversized code",
			req:       engine.ExecutionRequest{Code: strings.Repeat("a", engine.MaxCodeLength+1), Language: "python"},
			wantErr:   apperror.ErrValidation,
			wantField: "code",
		},
		{
			name: "code exactly at the limit",
			req:  engine.ExecutionRequest{Code: strings.Repeat("a", engine.MaxCodeLength), Language: "python"},
		},
		{
			name:      "missing language",
			req:       engine.ExecutionRequest{Code: "print(1)"},
			wantErr:   apperror.ErrValidation,
			wantField: "language",
		},
		{
			name:    "unsupported language",
			req:     engine.ExecutionRequest{Code: "puts 1", Language: "ruby"},
			wantErr: apperror.ErrUnsupportedLanguage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.ValidateRequest(tt.req)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantField != "" {
				var appErr *apperror.AppError
				if assert.True(t, errors.As(err, &appErr)) {
					assert.Equal(t, tt.wantField, appErr.Field)
				}
			}
		})
	}
}

func TestRunResultClassification(t *testing.T) {
	start := time.Now()

	t.Run("exit zero is success even with stderr", func(t *testing.T) {
		res := engine.RunResult("python", proc.Outcome{
			Stdout:   "done\n",
			Stderr:   "warning: deprecated\n",
			ExitCode: 0,
		}, start)
		assert.True(t, res.Success)
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "done\n", res.Output)
		assert.Equal(t, "warning: deprecated\n", res.Error)
	})

	t.Run("non-zero exit is failure with the real code", func(t *testing.T) {
		res := engine.RunResult("c", proc.Outcome{ExitCode: 7}, start)
		assert.False(t, res.Success)
		assert.Equal(t, 7, res.ExitCode)
	})

	t.Run("truncation flags carry through and do not fail the run", func(t *testing.T) {
		res := engine.RunResult("python", proc.Outcome{
			Stdout:          strings.Repeat("x", 10),
			ExitCode:        0,
			StdoutTruncated: true,
		}, start)
		assert.True(t, res.Success)
		assert.True(t, res.OutputTruncated)
		assert.False(t, res.ErrorTruncated)
	})
}

func TestTimeoutResult(t *testing.T) {
	res := engine.TimeoutResult("python", 5*time.Second, time.Now())
	assert.False(t, res.Success)
	assert.Equal(t, engine.SentinelExitCode, res.ExitCode)
	assert.Equal(t, "execution timed out after 5s", res.Error)
	assert.Empty(t, res.Output)
}

func TestCompileFailureResult(t *testing.T) {
	res := engine.CompileFailureResult("c", proc.Outcome{
		Stderr:   "main.c:1:1: error: expected identifier\n",
		ExitCode: 1,
	}, time.Now())
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Error, "expected identifier")
}

func TestInternalResultHidesDetails(t *testing.T) {
	res := engine.InternalResult("cpp", time.Now())
	assert.False(t, res.Success)
	assert.Equal(t, engine.SentinelExitCode, res.ExitCode)
	// No host paths or error chains leak to the caller.
	assert.NotContains(t, res.Error, "/")
	assert.Equal(t, "cpp", res.Language)
}
