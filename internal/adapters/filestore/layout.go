// Package filestore contains JSON and markdown file adapters rooted at the
// data directory.
//
// Layout:
//
//	<dataDir>/tickets/<projectId>.json
//	<dataDir>/runs/<runId>/{judgment.json,stdout.log,stderr.log,result.json}
//	<dataDir>/waivers/<waiverId>.md
package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kawanishi0117/agent-company-sub008/internal/errs"
)

// Layout resolves paths under a data directory.
type Layout struct {
	Root string
}

// TicketsDir returns the directory holding one JSON file per project.
func (l Layout) TicketsDir() string { return filepath.Join(l.Root, "tickets") }

// RunsDir returns the directory holding one subdirectory per run.
func (l Layout) RunsDir() string { return filepath.Join(l.Root, "runs") }

// WaiversDir returns the directory holding waiver documents.
func (l Layout) WaiversDir() string { return filepath.Join(l.Root, "waivers") }

// RunDir returns the artifact directory of one run.
func (l Layout) RunDir(runID string) string { return filepath.Join(l.RunsDir(), runID) }

// EnsureDirs creates every directory of the layout.
func (l Layout) EnsureDirs() error {
	for _, dir := range []string{l.TicketsDir(), l.RunsDir(), l.WaiversDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// checkName rejects ids that would escape their directory.
func checkName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return errs.Validation(field, "must not be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return errs.Validation(field, "%q is not a valid file name", name)
	}
	return nil
}

// writeJSON writes v to path through a temporary file and a rename, so
// readers never see a half-written document.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
