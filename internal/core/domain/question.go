package domain

type QuestionType string

const (
	QuestionProcedural      QuestionType = "procedural"
	QuestionConceptual      QuestionType = "conceptual"
	QuestionComparison      QuestionType = "comparison"
	QuestionTroubleshooting QuestionType = "troubleshooting"
	QuestionOther           QuestionType = "other"
)

func ParseQuestionType(raw string) (QuestionType, bool) {
	switch QuestionType(raw) {
	case QuestionProcedural, QuestionConceptual, QuestionComparison, QuestionTroubleshooting, QuestionOther:
		return QuestionType(raw), true
	default:
		return "", false
	}
}

// AskRequest is one incoming question with caller identity.
type AskRequest struct {
	Question       string `json:"question"`
	UserEmail      string `json:"user_email"`
	UserFullName   string `json:"user_full_name,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	ExpandContext  bool   `json:"expand_context,omitempty"`
}

type PlanSource string

const (
	PlanHeuristic         PlanSource = "heuristic"
	PlanLLM               PlanSource = "planner_llm"
	PlanHeuristicFallback PlanSource = "heuristic_fallback"
)

// QueryPlan drives one retrieval round. QueryVariants is never empty and
// always contains the original question.
type QueryPlan struct {
	QuestionType  QuestionType `json:"question_type"`
	EvidenceNeeds []string     `json:"evidence_needs"`
	QueryVariants []string     `json:"query_variants"`
	Source        PlanSource   `json:"source"`
}
