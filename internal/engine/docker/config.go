package docker

import (
	"time"

	"github.com/sakif/fluxflow/internal/engine"
)

// Config holds the configuration for container-backed execution.
type Config struct {
	// Image is the Docker image to execute in. It must provide every
	// toolchain binary the language registry references (python3, gcc, g++)
	// on PATH.
	Image string
	// Workdir is the writable directory inside the container where source
	// and binaries live. Mounted as tmpfs; the rest of the rootfs is
	// read-only.
	Workdir string
	// MemoryLimit is the maximum amount of memory the container can use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs the container can use.
	CPULimit float64
	// Timeout is the wall-clock budget shared by the compile and run stages.
	Timeout time.Duration
	// MaxOutputBytes caps each captured stream.
	MaxOutputBytes int
	// PoolSize is the number of pre-warmed containers to maintain.
	PoolSize int
}

// DefaultConfig provides sensible defaults for a multi-language sandbox.
func DefaultConfig() Config {
	return Config{
		// The deploy image carrying python3 + gcc + g++.
		Image:   "fluxflow/sandbox:latest",
		Workdir: "/tmp/run",
		// 128 MB memory limit
		MemoryLimit: 128 * 1024 * 1024,
		// 0.5 CPU shares
		CPULimit:       0.5,
		Timeout:        engine.DefaultTimeout,
		MaxOutputBytes: engine.MaxOutputBytes,
		PoolSize:       3,
	}
}
