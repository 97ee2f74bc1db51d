package domain

import "time"

type RetrievalOutcome string

const (
	OutcomeFound RetrievalOutcome = "found"
	OutcomeNone  RetrievalOutcome = "none"
)

// AskResult is the full outcome of one answered question.
type AskResult struct {
	Question          string           `json:"question"`
	Answer            string           `json:"answer"`
	ConfidencePercent int              `json:"confidence_percent"`
	Grounded          bool             `json:"grounded"`
	FallbackMode      FallbackMode     `json:"fallback_mode"`
	RetrievalOutcome  RetrievalOutcome `json:"retrieval_outcome"`
	WebpageLinks      []string         `json:"webpage_links,omitempty"`
	Rows              []EvidenceRow    `json:"rows"`
	Trace             RetrievalTrace   `json:"trace"`
}

// DocumentUsage summarises one document referenced by an answer.
type DocumentUsage struct {
	DocumentID string     `json:"document_id"`
	SourceName string     `json:"source_name"`
	SourceType SourceType `json:"source_type"`
}

// AskHistoryEntry is what the history sink persists for audit.
type AskHistoryEntry struct {
	ID                string           `json:"id"`
	UserID            string           `json:"user_id"`
	UserEmail         string           `json:"user_email"`
	Question          string           `json:"question"`
	Answer            string           `json:"answer"`
	ConversationID    string           `json:"conversation_id,omitempty"`
	DocumentsUsed     []DocumentUsage  `json:"documents_used"`
	ChunksUsed        []string         `json:"chunks_used"`
	ImagesUsed        []string         `json:"images_used"`
	WebpageLinks      []string         `json:"webpage_links"`
	ConfidencePercent int              `json:"confidence_percent"`
	Grounded          bool             `json:"grounded"`
	RetrievalOutcome  RetrievalOutcome `json:"retrieval_outcome"`
	FallbackMode      FallbackMode     `json:"fallback_mode"`
	Trace             RetrievalTrace   `json:"trace"`
	CreatedAt         time.Time        `json:"created_at"`
}
