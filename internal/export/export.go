// Package export writes reports to the project-time.json artifact.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the artifact written at the project root.
const FileName = "project-time.json"

// ExportError reports that a report could not be written.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("export: %v", e.Err)
	}
	return fmt.Sprintf("export %s: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// ErrNoProject is wrapped by ExportError when there is no project root.
var ErrNoProject = errors.New("no active project")

// Exporter writes reports into a project directory.
type Exporter struct {
	// Root is the project workspace root. Empty means no project context.
	Root string
}

// New returns an Exporter for the project rooted at root.
func New(root string) *Exporter {
	return &Exporter{Root: root}
}

// Path returns where Export writes.
func (e *Exporter) Path() string {
	if e.Root == "" {
		return ""
	}
	return filepath.Join(e.Root, FileName)
}

// Encode renders report as UTF-8 JSON indented with two spaces.
func Encode(report any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Export serializes report and replaces the artifact atomically. It returns
// the written path.
func (e *Exporter) Export(report any) (string, error) {
	if e.Root == "" {
		return "", &ExportError{Err: ErrNoProject}
	}
	path := e.Path()

	data, err := Encode(report)
	if err != nil {
		return "", &ExportError{Path: path, Err: err}
	}

	// Write to a temp file in the same directory so os.Rename is atomic.
	tmp, err := os.CreateTemp(e.Root, ".project-time-*.json.tmp")
	if err != nil {
		return "", &ExportError{Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", &ExportError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", &ExportError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return "", &ExportError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", &ExportError{Path: path, Err: err}
	}
	return path, nil
}
