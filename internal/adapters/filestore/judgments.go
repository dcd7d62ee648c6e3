package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

const judgmentFile = "judgment.json"

// JudgmentStore implements secondary.JudgmentStore as runs/<runId>/judgment.json.
type JudgmentStore struct {
	layout Layout
}

// NewJudgmentStore creates a judgment store rooted at dataDir.
func NewJudgmentStore(dataDir string) *JudgmentStore {
	return &JudgmentStore{layout: Layout{Root: dataDir}}
}

// Get returns the judgment of a run, or nil if none has been written.
func (s *JudgmentStore) Get(ctx context.Context, runID string) (*models.Judgment, error) {
	if err := checkName("runId", runID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.layout.RunDir(runID), judgmentFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read judgment for %s: %w", runID, err)
	}
	var j models.Judgment
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("failed to decode judgment for %s: %w", runID, err)
	}
	return &j, nil
}

// Save writes the judgment of a run.
func (s *JudgmentStore) Save(ctx context.Context, judgment *models.Judgment) error {
	if judgment == nil {
		return fmt.Errorf("judgment must not be nil")
	}
	if err := checkName("runId", judgment.RunID); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.layout.RunDir(judgment.RunID), judgmentFile), judgment)
}
