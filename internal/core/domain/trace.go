package domain

type FallbackMode string

const (
	FallbackNone           FallbackMode = "none"
	FallbackBroadened      FallbackMode = "broadened_retrieval"
	FallbackModelKnowledge FallbackMode = "model_knowledge"
	FallbackOutOfScope     FallbackMode = "out_of_scope"
)

// RoundTrace records one retrieval round for audit.
type RoundTrace struct {
	Round       int      `json:"round"`
	Broaden     bool     `json:"broaden"`
	Queries     []string `json:"queries"`
	ResultCount int      `json:"result_count"`
	TopChunkIDs []string `json:"top_chunk_ids"`
}

// SecondPassDecision captures the gap detector verdict after round 1.
type SecondPassDecision struct {
	Needed bool   `json:"needed"`
	Reason string `json:"reason"`
	Source string `json:"source"`
}

// ExpansionTrace records one full-document promotion.
type ExpansionTrace struct {
	DocumentID string `json:"document_id"`
	CharCount  int    `json:"char_count"`
	Truncated  bool   `json:"truncated"`
}

// RetrievalTrace is the per-request audit record built incrementally by the
// orchestrator and persisted alongside the answer.
type RetrievalTrace struct {
	QuestionType  QuestionType        `json:"question_type"`
	EvidenceNeeds []string            `json:"evidence_needs"`
	PlannerSource PlanSource          `json:"planner_source"`
	Rounds        []RoundTrace        `json:"rounds"`
	SecondPass    *SecondPassDecision `json:"second_pass,omitempty"`
	Expansions    []ExpansionTrace    `json:"expansions,omitempty"`
}
