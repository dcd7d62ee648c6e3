package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kawanishi0117/agent-company-sub008/internal/ports/primary"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/secondary"
)

const versionProbeParallelism = 4

// AgentServiceImpl implements the AgentService interface.
type AgentServiceImpl struct {
	agents       secondary.AgentRegistry
	defaultAgent string
}

// NewAgentService creates a new AgentService with injected dependencies.
func NewAgentService(agents secondary.AgentRegistry, defaultAgent string) *AgentServiceImpl {
	return &AgentServiceImpl{agents: agents, defaultAgent: defaultAgent}
}

// ListAgents probes every registered adapter concurrently.
func (s *AgentServiceImpl) ListAgents(ctx context.Context) ([]*primary.AgentInfo, error) {
	adapters := s.agents.All()
	infos := make([]*primary.AgentInfo, len(adapters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(versionProbeParallelism)
	for i, a := range adapters {
		i, a := i, a
		g.Go(func() error {
			info := &primary.AgentInfo{
				Name:            a.Name(),
				ContractVersion: a.Version(),
				Command:         a.Command(),
				Default:         a.Name() == s.defaultAgent,
			}
			if a.IsAvailable(gctx) {
				info.Available = true
				if v := a.GetVersion(gctx); v != nil {
					info.ToolVersion = *v
				}
			}
			infos[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return infos, nil
}
