// Package language holds the static registry mapping language ids to their
// execution pipelines. The table is process-wide immutable configuration:
// built once at init, read-only afterwards, safe to share without locking.
package language

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/sakif/fluxflow/internal/apperror"
)

// Argv templates use these placeholders; they are expanded against workspace
// paths by CompileArgv/RunArgv. Commands are always discrete argument
// vectors — nothing here ever passes through a shell.
const (
	placeholderSource = "{source}"
	placeholderBinary = "{binary}"
)

// Pipeline describes how one language turns source text into a running
// process: the source file extension, an optional compile stage, and the run
// stage. Descriptors are immutable.
type Pipeline struct {
	ID        string
	Name      string // display name for the /api/languages listing
	Extension string
	Compile   []string // argv template; empty means interpret-only
	Run       []string // argv template
}

// HasCompileStage reports whether this pipeline compiles before running.
func (p Pipeline) HasCompileStage() bool {
	return len(p.Compile) > 0
}

// CompileArgv expands the compile template against concrete workspace paths.
func (p Pipeline) CompileArgv(source, binary string) []string {
	return expand(p.Compile, source, binary)
}

// RunArgv expands the run template against concrete workspace paths.
func (p Pipeline) RunArgv(source, binary string) []string {
	return expand(p.Run, source, binary)
}

func expand(template []string, source, binary string) []string {
	argv := make([]string, len(template))
	for i, arg := range template {
		arg = strings.ReplaceAll(arg, placeholderSource, source)
		arg = strings.ReplaceAll(arg, placeholderBinary, binary)
		argv[i] = arg
	}
	return argv
}

// registry is populated once here and never mutated. Adding a language means
// adding a descriptor; no other component changes.
var registry = map[string]Pipeline{
	"python": {
		ID:        "python",
		Name:      "Python 3",
		Extension: ".py",
		Run:       []string{"python3", placeholderSource},
	},
	"c": {
		ID:        "c",
		Name:      "C (GCC)",
		Extension: ".c",
		Compile:   []string{"gcc", placeholderSource, "-o", placeholderBinary, "-lm"},
		Run:       []string{placeholderBinary},
	},
	"cpp": {
		ID:        "cpp",
		Name:      "C++ (G++)",
		Extension: ".cpp",
		Compile:   []string{"g++", placeholderSource, "-o", placeholderBinary, "-std=c++17"},
		Run:       []string{placeholderBinary},
	},
}

// order fixes the listing order for All(); map iteration order is random.
var order = []string{"python", "c", "cpp"}

// Lookup resolves a language id to its pipeline. Pure function, no side
// effects.
func Lookup(id string) (Pipeline, error) {
	p, ok := registry[id]
	if !ok {
		return Pipeline{}, apperror.UnsupportedLanguage(id)
	}
	return p, nil
}

// All returns every registered pipeline in stable order.
func All() []Pipeline {
	pipelines := make([]Pipeline, 0, len(registry))
	for _, id := range order {
		pipelines = append(pipelines, registry[id])
	}
	return pipelines
}

// Verify checks that every toolchain binary the registry references resolves
// on PATH. A missing compiler or interpreter is a startup-time configuration
// error — requests must never discover it at runtime.
func Verify() error {
	for _, id := range order {
		p := registry[id]
		for _, tool := range p.toolchain() {
			if _, err := exec.LookPath(tool); err != nil {
				return fmt.Errorf("language %s: required binary %q not found on PATH: %w", id, tool, err)
			}
		}
	}
	return nil
}

// toolchain returns the host binaries this pipeline invokes. Templated
// arguments (workspace-local paths) are not host tools and are skipped.
func (p Pipeline) toolchain() []string {
	var tools []string
	for _, template := range [][]string{p.Compile, p.Run} {
		if len(template) == 0 {
			continue
		}
		if cmd := template[0]; !strings.Contains(cmd, "{") {
			tools = append(tools, cmd)
		}
	}
	return tools
}
