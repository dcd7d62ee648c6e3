package models

// DecompositionPlan describes how a parent ticket breaks down into child
// and grandchild tickets. It is usually written by hand or by a planning
// agent as YAML.
type DecompositionPlan struct {
	Children []ChildPlan `json:"children" yaml:"children"`
}

// ChildPlan is one child entry of a decomposition plan.
type ChildPlan struct {
	Title         string           `json:"title" yaml:"title"`
	Description   string           `json:"description" yaml:"description"`
	WorkerType    WorkerType       `json:"workerType" yaml:"workerType"`
	Grandchildren []GrandchildPlan `json:"grandchildren" yaml:"grandchildren"`
}

// GrandchildPlan is one grandchild entry of a decomposition plan.
type GrandchildPlan struct {
	Title              string   `json:"title" yaml:"title"`
	Description        string   `json:"description" yaml:"description"`
	AcceptanceCriteria []string `json:"acceptanceCriteria" yaml:"acceptanceCriteria"`
	GitBranch          string   `json:"gitBranch,omitempty" yaml:"gitBranch,omitempty"`
}
