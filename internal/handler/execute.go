package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/fluxflow/internal/apperror"
	"github.com/sakif/fluxflow/internal/engine"
)

// ExecuteHandler handles code execution requests.
type ExecuteHandler struct {
	exec   engine.Executor
	logger *slog.Logger
}

// NewExecuteHandler creates a new ExecuteHandler.
func NewExecuteHandler(exec engine.Executor, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		exec:   exec,
		logger: logger,
	}
}

// HandleExecute processes an incoming code execution request.
//
// Validation runs here, before the engine is invoked, so a rejected request
// never reaches the execution pipeline. The engine re-checks on its own —
// the transport is not the only possible caller.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req engine.ExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid execution request body", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	if err := engine.ValidateRequest(req); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("executing code",
		slog.String("language", req.Language),
		slog.Int("codeLength", len(req.Code)),
	)

	result, err := h.exec.Execute(r.Context(), req)
	if err != nil {
		h.logger.Error("code execution failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
