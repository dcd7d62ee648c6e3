package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	coreticket "github.com/kawanishi0117/agent-company-sub008/internal/core/ticket"
	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

// TicketStore implements secondary.TicketStore with one JSON file per project.
type TicketStore struct {
	layout Layout
}

// NewTicketStore creates a ticket store rooted at dataDir.
func NewTicketStore(dataDir string) *TicketStore {
	return &TicketStore{layout: Layout{Root: dataDir}}
}

// Load reads the tree of a project. The file is looked up by exact name,
// then by the normalized project name, then by scanning for a document
// whose projectId matches. Parent tickets of other projects in that file
// are dropped. No match yields an empty tree.
func (s *TicketStore) Load(ctx context.Context, projectID string) (*models.ProjectTickets, error) {
	if err := checkName("projectId", projectID); err != nil {
		return nil, err
	}

	path, ok, err := s.resolve(projectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &models.ProjectTickets{ProjectID: projectID, ParentTickets: []models.ParentTicket{}}, nil
	}

	doc, err := readProject(path)
	if err != nil {
		return nil, err
	}
	doc.ProjectID = projectID
	doc.ParentTickets = ownParents(doc.ParentTickets, projectID)
	return doc, nil
}

// Save writes the tree of a project, replacing whichever file Load would
// have read unless that file also holds another project's tickets; then
// the project gets a file of its own.
func (s *TicketStore) Save(ctx context.Context, tickets *models.ProjectTickets) error {
	if tickets == nil {
		return fmt.Errorf("tickets must not be nil")
	}
	if err := checkName("projectId", tickets.ProjectID); err != nil {
		return err
	}

	path, ok, err := s.resolve(tickets.ProjectID)
	if err != nil {
		return err
	}
	if !ok || !ownedBy(path, tickets.ProjectID) {
		path = s.exactPath(tickets.ProjectID)
	}

	doc := tickets.Clone()
	doc.LastUpdated = time.Now().UTC()
	if doc.ParentTickets == nil {
		doc.ParentTickets = []models.ParentTicket{}
	}
	if err := writeJSON(path, doc); err != nil {
		return fmt.Errorf("failed to save tickets for %s: %w", tickets.ProjectID, err)
	}
	tickets.LastUpdated = doc.LastUpdated
	return nil
}

// ListProjects returns the project ids stored in the tickets directory.
func (s *TicketStore) ListProjects(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.layout.TicketsDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	var projects []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		doc, err := readProject(filepath.Join(s.layout.TicketsDir(), e.Name()))
		if err != nil || doc.ProjectID == "" {
			projects = append(projects, strings.TrimSuffix(e.Name(), ".json"))
			continue
		}
		projects = append(projects, doc.ProjectID)
	}
	sort.Strings(projects)
	return projects, nil
}

func (s *TicketStore) exactPath(projectID string) string {
	return filepath.Join(s.layout.TicketsDir(), projectID+".json")
}

func (s *TicketStore) resolve(projectID string) (string, bool, error) {
	exact := s.exactPath(projectID)
	if fileExists(exact) {
		return exact, true, nil
	}

	if normalized := coreticket.NormalizeProjectName(projectID); normalized != projectID && normalized != "" {
		path := s.exactPath(normalized)
		if fileExists(path) {
			if doc, err := readProject(path); err == nil && (doc.ProjectID == "" || doc.ProjectID == projectID) {
				return path, true, nil
			}
		}
	}

	entries, err := os.ReadDir(s.layout.TicketsDir())
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to scan tickets directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(s.layout.TicketsDir(), e.Name())
		doc, err := readProject(path)
		if err != nil {
			continue
		}
		if doc.ProjectID == projectID {
			return path, true, nil
		}
	}
	return "", false, nil
}

// ownParents keeps the parent tickets of projectID. A parent without an
// embedded projectId belongs to the project named by its id.
func ownParents(parents []models.ParentTicket, projectID string) []models.ParentTicket {
	own := make([]models.ParentTicket, 0, len(parents))
	for _, p := range parents {
		if belongsTo(p, projectID) {
			own = append(own, p)
		}
	}
	return own
}

func belongsTo(p models.ParentTicket, projectID string) bool {
	if p.ProjectID != "" {
		return p.ProjectID == projectID
	}
	_, owner := coreticket.ClassifyID(p.ID)
	return owner == projectID
}

// ownedBy reports whether every ticket in the file at path is projectID's,
// so that rewriting it loses nothing of another project.
func ownedBy(path, projectID string) bool {
	doc, err := readProject(path)
	if err != nil {
		return false
	}
	if doc.ProjectID != "" && doc.ProjectID != projectID {
		return false
	}
	for _, p := range doc.ParentTickets {
		if !belongsTo(p, projectID) {
			return false
		}
	}
	return true
}

func readProject(path string) (*models.ProjectTickets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	var doc models.ProjectTickets
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return &doc, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
