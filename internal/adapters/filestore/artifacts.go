package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

// ArtifactStore implements secondary.ArtifactStore under runs/<runId>/.
type ArtifactStore struct {
	layout Layout
}

// NewArtifactStore creates an artifact store rooted at dataDir.
func NewArtifactStore(dataDir string) *ArtifactStore {
	return &ArtifactStore{layout: Layout{Root: dataDir}}
}

// RunDir returns the artifact directory of a run.
func (s *ArtifactStore) RunDir(runID string) string {
	return s.layout.RunDir(runID)
}

// WriteRunArtifacts writes stdout.log, stderr.log and result.json.
func (s *ArtifactStore) WriteRunArtifacts(ctx context.Context, runID string, result *models.CodingTaskResult) ([]string, error) {
	if err := checkName("runId", runID); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("result must not be nil")
	}

	dir := s.layout.RunDir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	stdout := filepath.Join(dir, "stdout.log")
	stderr := filepath.Join(dir, "stderr.log")
	resultPath := filepath.Join(dir, "result.json")

	if err := os.WriteFile(stdout, []byte(result.Output), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write stdout.log: %w", err)
	}
	if err := os.WriteFile(stderr, []byte(result.Stderr), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write stderr.log: %w", err)
	}
	if err := writeJSON(resultPath, result); err != nil {
		return nil, err
	}
	return []string{stdout, stderr, resultPath}, nil
}
