package model

import "time"

// Report is the long-term record of a finished run, keyed by run id.
type Report struct {
	ID            string    `json:"id"`
	Query         string    `json:"query"`
	Report        string    `json:"report"`
	SourceCount   int       `json:"source_count"`
	ConflictCount int       `json:"conflict_count"`
	Iterations    int       `json:"iterations"`
	Score         float64   `json:"score"`
	Summary       string    `json:"summary,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
