package agent

import (
	"github.com/kawanishi0117/agent-company-sub008/internal/errs"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/secondary"
)

// Registry implements secondary.AgentRegistry over a fixed set of adapters.
type Registry struct {
	order  []secondary.CodingAgent
	byName map[string]secondary.CodingAgent
}

// NewRegistry creates a registry. A later adapter with the same name
// replaces an earlier one.
func NewRegistry(adapters ...secondary.CodingAgent) *Registry {
	r := &Registry{byName: make(map[string]secondary.CodingAgent)}
	for _, a := range adapters {
		if _, exists := r.byName[a.Name()]; !exists {
			r.order = append(r.order, a)
		} else {
			for i, prev := range r.order {
				if prev.Name() == a.Name() {
					r.order[i] = a
				}
			}
		}
		r.byName[a.Name()] = a
	}
	return r
}

// NewDefaultRegistry registers the Claude, Codex and OpenCode adapters.
// commands overrides the executable per adapter name.
func NewDefaultRegistry(runner *Runner, commands map[string]string) *Registry {
	return NewRegistry(
		NewClaudeAdapter(runner, commands["claude"]),
		NewCodexAdapter(runner, commands["codex"]),
		NewOpenCodeAdapter(runner, commands["opencode"]),
	)
}

// Get returns the adapter with the given name.
func (r *Registry) Get(name string) (secondary.CodingAgent, error) {
	a, ok := r.byName[name]
	if !ok {
		return nil, errs.NotFound("agent adapter", name)
	}
	return a, nil
}

// All returns the adapters in registration order.
func (r *Registry) All() []secondary.CodingAgent {
	return append([]secondary.CodingAgent(nil), r.order...)
}
