package domain

type SkipReason string

const (
	SkipBudgetExhausted SkipReason = "budget_exhausted"
	SkipFresh           SkipReason = "fresh"
)

// SyncTaskResult is the outcome of one (game, resource) task in a sync run
type SyncTaskResult struct {
	Game         GameType     `json:"game"`
	ResourceType SyncResource `json:"resourceType"`
	Success      bool         `json:"success"`
	Count        *int         `json:"count,omitempty"`
	Skipped      bool         `json:"skipped,omitempty"`
	Reason       SkipReason   `json:"reason,omitempty"`
	Error        string       `json:"error,omitempty"`
}

type SyncTask struct {
	Game     GameType
	Resource SyncResource
}
