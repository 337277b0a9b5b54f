// Package workspace manages the ephemeral, per-request directories that hold
// submitted source and compiled artifacts.
//
// Each workspace is exclusively owned by one execution and must be destroyed
// exactly once, on every exit path — callers pair Create with a deferred
// Destroy so that compile failures, timeouts, and panics cannot leak
// directories.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/xid"
)

// Manager creates workspaces under a fixed root directory.
type Manager struct {
	root string
}

// NewManager ensures the root directory exists and returns a Manager.
func NewManager(root string) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace root: %w", err)
	}
	return &Manager{root: root}, nil
}

// Workspace is one execution's private directory.
type Workspace struct {
	ID  string
	Dir string
}

// Create allocates a uniquely named directory.
//
// The name comes from xid — never from request content — so concurrent
// requests cannot collide and source text cannot influence filesystem paths.
func (m *Manager) Create() (*Workspace, error) {
	id := xid.New().String()
	dir := filepath.Join(m.root, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace %s: %w", id, err)
	}
	return &Workspace{ID: id, Dir: dir}, nil
}

// WriteSource writes the submitted code verbatim to "main<ext>" inside the
// workspace and returns the full path. The code is treated purely as data.
func (w *Workspace) WriteSource(code, ext string) (string, error) {
	path := filepath.Join(w.Dir, "main"+ext)
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return "", fmt.Errorf("writing source file: %w", err)
	}
	return path, nil
}

// Path returns the full path for a named artifact (e.g. the compiled binary)
// inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// Destroy recursively removes the workspace directory. Safe to call from a
// defer; an error here is logged by the caller, not surfaced to the user.
func (w *Workspace) Destroy() error {
	return os.RemoveAll(w.Dir)
}
