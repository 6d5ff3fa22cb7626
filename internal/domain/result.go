package domain

import "time"

// RunStatus classifies a finished pipeline run.
type RunStatus string

const (
	StatusSuccess RunStatus = "success"
	StatusPartial RunStatus = "partial"
	StatusFailed  RunStatus = "failed"
)

// Score holds the named selection dimensions, each in [0,1].
type Score struct {
	Relevance           float64 `json:"relevance"`
	EngagementPotential float64 `json:"engagement_potential"`
	Quality             float64 `json:"quality"`
}

// Total is the aggregate used for ordering candidates.
func (s Score) Total() float64 {
	return s.Relevance + s.EngagementPotential + s.Quality
}

// RankedItem pairs a chosen candidate with its one-paragraph summary.
type RankedItem struct {
	Item    ContentItem
	Summary string
}

// SelectionResult is the selector's output. Chosen and Scores are set for
// generation intent; Ranked is set for scouting intent.
type SelectionResult struct {
	Chosen *ContentItem
	Scores Score
	Ranked []RankedItem
}

// Report is the terminal payload of a scouting run.
type Report struct {
	ScoutName   string
	Items       []RankedItem
	GeneratedAt time.Time
}

// Draft is the terminal payload of a generation run. Chunks holds the
// platform-formatted text, already split per the platform's threading policy.
type Draft struct {
	Item     ContentItem
	Platform string
	Chunks   []string
}

// Payload carries exactly one of Report or Draft.
type Payload struct {
	Report *Report
	Draft  *Draft
}

// PipelineResult is the terminal artifact of one scout run.
type PipelineResult struct {
	RunID         string
	ScoutID       string
	ScoutName     string
	Intent        Intent
	StartedAt     time.Time
	FinishedAt    time.Time
	Status        RunStatus
	Payload       Payload
	FailedSources []string
	NoNewContent  bool
	Error         string // empty when Status is StatusSuccess
}

// EngineResponse is the opaque generation engine's reply: free-form text
// plus a record of any tool invocations it made.
type EngineResponse struct {
	Text      string
	ToolCalls []ToolInvocation
}

// ToolSpec describes a tool binding offered to the generation engine.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]string // parameter name -> description
}

// ToolInvocation records one tool call the engine made during an invocation.
type ToolInvocation struct {
	Name      string
	Arguments map[string]any
}
