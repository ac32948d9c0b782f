package ragway

// ChatOptions tune a context-augmented chat request.
type ChatOptions struct {
	MaxDocs       int     `json:"max_docs,omitempty"`
	MinScore      float64 `json:"min_score,omitempty"`
	IncludeScores bool    `json:"include_scores,omitempty"`
}

// Document is a unit of indexable content.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchResult is one scored search hit.
type SearchResult struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score"`
}

// ComponentStatus is one collaborator's section of the health report.
type ComponentStatus struct {
	Connected   bool   `json:"connected"`
	Initialized bool   `json:"initialized,omitempty"`
	State       string `json:"state,omitempty"`
	Error       string `json:"error,omitempty"`
}

// HealthReport is the aggregated gateway health snapshot.
type HealthReport struct {
	Status    string          `json:"status"`
	Cache     ComponentStatus `json:"cache"`
	Retriever ComponentStatus `json:"retriever"`
	Backend   ComponentStatus `json:"backend"`
}

// APIError is a structured error response from the gateway.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return "ragway: " + e.Code + ": " + e.Message
}
