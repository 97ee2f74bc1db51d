package domain

type ChunkType string

const (
	ChunkText         ChunkType = "text"
	ChunkTableSummary ChunkType = "table_summary"
	ChunkTableRow     ChunkType = "table_row"
	ChunkImage        ChunkType = "image"
	ChunkDocumentFull ChunkType = "document_full"
)

// Modality selects which chunk universe a search runs over.
type Modality string

const (
	ModalityText         Modality = "text"
	ModalityImageCaption Modality = "image_caption"
)

// LexicalHit pairs a candidate row with its substring match count.
type LexicalHit struct {
	Row        EvidenceRow
	MatchCount int
}

// VectorHit pairs a candidate row with its raw vector distance. The
// embedding retriever converts distance to similarity.
type VectorHit struct {
	Row      EvidenceRow
	Distance float64
}

// UnscoredSimilarity marks rows that arrived without a retrieval score,
// such as lexical matches before reranking.
const UnscoredSimilarity = -1.0

// EvidenceRow is one candidate piece of answer context. Rows are value
// objects rebuilt per request and never persisted as mutable entities.
type EvidenceRow struct {
	ChunkID        *string    `json:"chunk_id,omitempty"`
	ImageID        *string    `json:"image_id,omitempty"`
	DocumentID     string     `json:"document_id"`
	SourceName     string     `json:"source_name"`
	SourceType     SourceType `json:"source_type"`
	SourceURL      string     `json:"source_url,omitempty"`
	ChunkText      string     `json:"chunk_text"`
	ChunkType      ChunkType  `json:"chunk_type"`
	EvidenceType   string     `json:"evidence_type"`
	PageNumber     *int       `json:"page_number,omitempty"`
	ImageURL       string     `json:"image_url,omitempty"`
	ImageKey       string     `json:"-"`
	Similarity     float64    `json:"similarity"`
	RetrievalScore float64    `json:"retrieval_score"`
}

// SourceKey identifies the origin bucket used for per-source concentration caps.
func (r EvidenceRow) SourceKey() string {
	return string(r.SourceType) + "|" + r.SourceName + "|" + r.SourceURL
}
