package model

import "time"

// RunStatus represents the current state of a research run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Mode selects how a submitted query is handled.
type Mode string

const (
	// ModeResearch classifies the query first: evidential queries go through
	// the full pipeline, conversational ones get a single-turn reply.
	ModeResearch Mode = "research"
	// ModeQuick always answers with a single-turn reply.
	ModeQuick Mode = "quick"
)

// Run represents a single pipeline execution for one query.
type Run struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Query     string    `json:"query"`
	Mode      Mode      `json:"mode"`
	Status    RunStatus `json:"status"`
	ReportID  string    `json:"report_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
