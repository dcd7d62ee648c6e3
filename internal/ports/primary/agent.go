package primary

import "context"

// AgentService defines the primary port for inspecting coding agent adapters.
type AgentService interface {
	// ListAgents reports every registered adapter and whether its executable is usable.
	ListAgents(ctx context.Context) ([]*AgentInfo, error)
}

// AgentInfo describes one registered adapter.
type AgentInfo struct {
	Name            string
	ContractVersion string
	Command         string
	Available       bool
	ToolVersion     string // Empty when the version could not be read
	Default         bool
}
