package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

type SourceType string

const (
	SourcePDF SourceType = "pdf"
	SourceWeb SourceType = "web"
)

type Document struct {
	ID          string         `json:"id"`
	SourceName  string         `json:"source_name"`
	SourceType  SourceType     `json:"source_type"`
	SourceURL   string         `json:"source_url,omitempty"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DocumentUpload carries the caller-provided metadata for a new document.
type DocumentUpload struct {
	SourceName string     `json:"source_name"`
	SourceType SourceType `json:"source_type"`
	SourceURL  string     `json:"source_url,omitempty"`
	Filename   string     `json:"filename"`
	MimeType   string     `json:"mime_type"`
}

// ExtractedSegment is one ordered unit of extracted content before chunking.
type ExtractedSegment struct {
	Text       string
	ChunkType  ChunkType
	PageNumber *int
}

// DocumentChunk is one ordered fragment of a document as stored by ingestion.
type DocumentChunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	ChunkType  ChunkType `json:"chunk_type"`
	Text       string    `json:"text"`
	PageNumber *int      `json:"page_number,omitempty"`
}
