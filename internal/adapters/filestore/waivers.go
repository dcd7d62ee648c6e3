package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	corewaiver "github.com/kawanishi0117/agent-company-sub008/internal/core/waiver"
	"github.com/kawanishi0117/agent-company-sub008/internal/errs"
	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

// WaiverSource implements secondary.WaiverSource over waivers/<id>.md.
type WaiverSource struct {
	layout Layout
}

// NewWaiverSource creates a waiver source rooted at dataDir.
func NewWaiverSource(dataDir string) *WaiverSource {
	return &WaiverSource{layout: Layout{Root: dataDir}}
}

// Path returns the file a waiver id maps to.
func (s *WaiverSource) Path(id string) string {
	return filepath.Join(s.layout.WaiversDir(), id+".md")
}

// Get reads and parses a waiver document.
func (s *WaiverSource) Get(ctx context.Context, id string) (*models.Waiver, error) {
	if err := checkName("waiverId", id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(id))
	if os.IsNotExist(err) {
		return nil, errs.NotFound("waiver", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read waiver %s: %w", id, err)
	}
	w := corewaiver.ParseWaiverContent(string(data)).Waiver
	w.ID = id
	return &w, nil
}

// Create writes a blank waiver template for target and returns its path.
// An existing document is never overwritten.
func (s *WaiverSource) Create(ctx context.Context, id, target string) (string, error) {
	if err := checkName("waiverId", id); err != nil {
		return "", err
	}
	path := s.Path(id)
	if fileExists(path) {
		return "", errs.Validation("waiverId", "waiver %s already exists", id)
	}
	if err := writeFileAtomic(path, []byte(corewaiver.Template(target))); err != nil {
		return "", err
	}
	return path, nil
}
