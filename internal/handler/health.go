package handler

import (
	"net/http"
	"time"
)

// Version is the service version reported by /health.
const Version = "1.0.0"

// HealthResponse is the /health payload. Deployment platforms ping this
// endpoint to decide whether the instance is alive.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp int64  `json:"timestamp"`
}

// HandleHealth reports service liveness.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Unix(),
	})
}
