package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kawanishi0117/agent-company-sub008/internal/errs"
	"github.com/kawanishi0117/agent-company-sub008/internal/logging"
	"github.com/kawanishi0117/agent-company-sub008/internal/models"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/secondary"
)

// ============================================================================
// Mock Implementations
// ============================================================================

var _ secondary.TicketStore = (*mockTicketStore)(nil)

// mockTicketStore keeps projects as JSON so callers never share memory
// with the store, like a real file.
type mockTicketStore struct {
	mu       sync.Mutex
	docs     map[string][]byte
	saveErr  error
	loadErr  error
	saves    int
	statuses []models.TicketStatus // first parent status on every save
}

func newMockTicketStore() *mockTicketStore {
	return &mockTicketStore{docs: make(map[string][]byte)}
}

func (m *mockTicketStore) Load(ctx context.Context, projectID string) (*models.ProjectTickets, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	data, ok := m.docs[projectID]
	if !ok {
		return &models.ProjectTickets{ProjectID: projectID, ParentTickets: []models.ParentTicket{}}, nil
	}
	var doc models.ProjectTickets
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *mockTicketStore) Save(ctx context.Context, tickets *models.ProjectTickets) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	data, err := json.Marshal(tickets)
	if err != nil {
		return err
	}
	m.docs[tickets.ProjectID] = data
	m.saves++
	if len(tickets.ParentTickets) > 0 {
		m.statuses = append(m.statuses, tickets.ParentTickets[0].Status)
	}
	return nil
}

func (m *mockTicketStore) ListProjects(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

var _ secondary.RunRepository = (*mockRunRepository)(nil)

type mockRunRepository struct {
	mu        sync.Mutex
	runs      map[string]*models.Run
	order     []string
	createErr error
}

func newMockRunRepository() *mockRunRepository {
	return &mockRunRepository{runs: make(map[string]*models.Run)}
}

func (m *mockRunRepository) Create(ctx context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	copied := *run
	m.runs[run.ID] = &copied
	m.order = append(m.order, run.ID)
	return nil
}

func (m *mockRunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, errs.NotFound("run", id)
	}
	copied := *run
	return &copied, nil
}

func (m *mockRunRepository) List(ctx context.Context, filters secondary.RunFilters) ([]*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Run
	for i := len(m.order) - 1; i >= 0; i-- {
		run := m.runs[m.order[i]]
		if filters.TicketID != "" && run.TicketID != filters.TicketID {
			continue
		}
		out = append(out, run)
	}
	return out, nil
}

func (m *mockRunRepository) CountByTicket(ctx context.Context, ticketID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, run := range m.runs {
		if run.TicketID == ticketID {
			n++
		}
	}
	return n, nil
}

var _ secondary.JudgmentStore = (*mockJudgmentStore)(nil)

type mockJudgmentStore struct {
	mu        sync.Mutex
	judgments map[string]models.Judgment
	saves     int
}

func newMockJudgmentStore() *mockJudgmentStore {
	return &mockJudgmentStore{judgments: make(map[string]models.Judgment)}
}

func (m *mockJudgmentStore) Get(ctx context.Context, runID string) (*models.Judgment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.judgments[runID]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (m *mockJudgmentStore) Save(ctx context.Context, judgment *models.Judgment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.judgments[judgment.RunID] = *judgment
	m.saves++
	return nil
}

var _ secondary.WaiverSource = (*mockWaiverSource)(nil)

type mockWaiverSource struct {
	waivers map[string]models.Waiver
}

func (m *mockWaiverSource) Get(ctx context.Context, id string) (*models.Waiver, error) {
	w, ok := m.waivers[id]
	if !ok {
		return nil, errs.NotFound("waiver", id)
	}
	return &w, nil
}

var _ secondary.ArtifactStore = (*mockArtifactStore)(nil)

type mockArtifactStore struct {
	mu      sync.Mutex
	written map[string]models.CodingTaskResult
}

func newMockArtifactStore() *mockArtifactStore {
	return &mockArtifactStore{written: make(map[string]models.CodingTaskResult)}
}

func (m *mockArtifactStore) WriteRunArtifacts(ctx context.Context, runID string, result *models.CodingTaskResult) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written[runID] = *result
	return []string{m.RunDir(runID) + "/stdout.log"}, nil
}

func (m *mockArtifactStore) RunDir(runID string) string {
	return "runs/" + runID
}

var _ secondary.CodingAgent = (*mockAgent)(nil)

// mockAgent returns a canned result, or the next of a sequence.
type mockAgent struct {
	mu       sync.Mutex
	name     string
	outputs  []string
	err      error
	calls    []secondary.ExecuteOptions
	inFlight int
	maxSeen  int
	delay    time.Duration
	// onExecute runs inside Execute before the canned result is returned.
	onExecute func(opts secondary.ExecuteOptions)
}

func (m *mockAgent) Name() string { return m.name }
func (m *mockAgent) Version() string { return "1.0.0" }
func (m *mockAgent) Command() string { return m.name }
func (m *mockAgent) IsAvailable(ctx context.Context) bool { return true }

func (m *mockAgent) GetVersion(ctx context.Context) *string {
	v := "9.9.9"
	return &v
}

func (m *mockAgent) Execute(ctx context.Context, opts secondary.ExecuteOptions) (*models.CodingTaskResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, opts)
	m.inFlight++
	if m.inFlight > m.maxSeen {
		m.maxSeen = m.inFlight
	}
	idx := len(m.calls) - 1
	m.mu.Unlock()

	if m.onExecute != nil {
		m.onExecute(opts)
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	out := ""
	if len(m.outputs) > 0 {
		if idx >= len(m.outputs) {
			idx = len(m.outputs) - 1
		}
		out = m.outputs[idx]
	}
	return &models.CodingTaskResult{Success: true, Output: out, FilesChanged: []string{"src/a.ts"}}, nil
}

var _ secondary.WorkspaceProvider = (*mockWorkspaces)(nil)

// mockWorkspaces isolates each ticket in <baseDir>/<ticketID> unless shared.
type mockWorkspaces struct {
	shared bool
	err    error
}

func (m *mockWorkspaces) Acquire(ctx context.Context, baseDir, ticketID, branch string) (*secondary.Workspace, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.shared {
		return &secondary.Workspace{Dir: baseDir}, nil
	}
	return &secondary.Workspace{Dir: baseDir + "/" + ticketID, Isolated: true}, nil
}

var _ secondary.AgentRegistry = (*mockRegistry)(nil)

type mockRegistry struct {
	agents []secondary.CodingAgent
}

func (m *mockRegistry) Get(name string) (secondary.CodingAgent, error) {
	for _, a := range m.agents {
		if a.Name() == name {
			return a, nil
		}
	}
	return nil, errs.NotFound("agent adapter", name)
}

func (m *mockRegistry) All() []secondary.CodingAgent { return m.agents }

var _ secondary.CommandRunner = (*mockCommandRunner)(nil)

type mockCommandRunner struct {
	outputs map[string]string
}

func (m *mockCommandRunner) Run(ctx context.Context, dir, command string, timeout time.Duration) (string, int, error) {
	out, ok := m.outputs[command]
	if !ok {
		return "", 127, fmt.Errorf("unknown command %q", command)
	}
	return out, 0, nil
}

// ============================================================================
// Fixtures
// ============================================================================

const (
	passingVitest = " Test Files  1 passed (1)\n      Tests  3 passed (3)\n\n % Coverage report from v8\nFile      | % Stmts | % Branch\nAll files |   92.5  |   80\n"
	failingVitest = "      Tests  1 failed | 2 passed (3)\nAll files |   92.5  |   80\n"
)

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func newTestTicketService(store secondary.TicketStore) *TicketServiceImpl {
	s := NewTicketService(store, logging.Discard())
	s.now = fixedClock()
	return s
}
