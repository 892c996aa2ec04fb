package model

// Phase identifies the pipeline stage a run is in. It is stored with the
// checkpoint so a resumed run knows where it left off.
type Phase string

const (
	PhasePlanning     Phase = "planning"
	PhaseRetrieving   Phase = "retrieving"
	PhaseSynthesizing Phase = "synthesizing"
	PhaseCritiquing   Phase = "critiquing"
	PhaseFinalized    Phase = "finalized"
	PhaseFailed       Phase = "failed"
)

// State is the aggregate record threaded through every pipeline stage and
// persisted as a checkpoint after each stage boundary. It carries plain data
// only; the event sink is injected per stage call and never stored here, so
// the whole struct round-trips through JSON.
type State struct {
	Query         string              `json:"query"`
	RunID         string              `json:"run_id"`
	SessionID     string              `json:"session_id"`
	Phase         Phase               `json:"phase,omitempty"`
	Plan          []SubQuery          `json:"plan,omitempty"`
	Documents     []RetrievedDocument `json:"documents,omitempty"`
	Draft         string              `json:"draft,omitempty"`
	Conflicts     []Conflict          `json:"conflicts,omitempty"`
	SourcesMeta   []SourceMeta        `json:"sources_meta,omitempty"`
	Critique      *Critique           `json:"critique,omitempty"`
	Iteration     int                 `json:"iteration"`
	MaxIterations int                 `json:"max_iterations"`
	FinalReport   string              `json:"final_report,omitempty"`
}

// MergeDocuments appends docs to the state's collection. The merge is
// append-only and order-insensitive: membership of the final collection does
// not depend on the order concurrent retrieval units complete in.
func (s *State) MergeDocuments(docs []RetrievedDocument) {
	s.Documents = append(s.Documents, docs...)
}

// Clone returns a deep-enough copy for snapshotting: slices are copied so a
// later stage appending to the live state cannot mutate a saved checkpoint.
func (s *State) Clone() *State {
	cp := *s
	cp.Plan = append([]SubQuery(nil), s.Plan...)
	cp.Documents = append([]RetrievedDocument(nil), s.Documents...)
	cp.Conflicts = append([]Conflict(nil), s.Conflicts...)
	cp.SourcesMeta = append([]SourceMeta(nil), s.SourcesMeta...)
	if s.Critique != nil {
		c := *s.Critique
		cp.Critique = &c
	}
	return &cp
}
