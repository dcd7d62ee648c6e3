package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/kawanishi0117/agent-company-sub008/internal/ports/primary"
)

// AgentAdapter renders the registered coding agent adapters.
type AgentAdapter struct {
	service primary.AgentService
	out     io.Writer
}

// NewAgentAdapter creates a new AgentAdapter with the given service.
func NewAgentAdapter(service primary.AgentService, out io.Writer) *AgentAdapter {
	return &AgentAdapter{
		service: service,
		out:     out,
	}
}

// List prints every adapter with its availability and tool version.
func (a *AgentAdapter) List(ctx context.Context) ([]*primary.AgentInfo, error) {
	infos, err := a.service.ListAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}

	tw := newTable(a.out, "NAME", "COMMAND", "AVAILABLE", "VERSION", "CONTRACT", "DEFAULT")
	for _, info := range infos {
		available := failMark
		if info.Available {
			available = okMark
		}
		def := ""
		if info.Default {
			def = "*"
		}
		tw.AppendRow([]interface{}{info.Name, info.Command, available, orDash(info.ToolVersion), info.ContractVersion, def})
	}
	tw.Render()
	return infos, nil
}
