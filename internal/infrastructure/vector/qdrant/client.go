package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/contextforge/contextforge/internal/core/domain"
)

// Client talks to Qdrant over its HTTP API. Text chunks and image captions
// live in separate collections; vectors are indexed as the last processing
// step, so everything searchable belongs to a ready document.
type Client struct {
	baseURL         string
	textCollection  string
	imageCollection string
	httpClient      *http.Client

	ensureMu sync.Mutex
	ensured  map[string]int
}

func New(baseURL, textCollection, imageCollection string) *Client {
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		textCollection:  textCollection,
		imageCollection: imageCollection,
		httpClient:      &http.Client{Timeout: 60 * time.Second},
		ensured:         make(map[string]int),
	}
}

func (c *Client) collectionFor(modality domain.Modality) (string, error) {
	switch modality {
	case domain.ModalityText:
		return c.textCollection, nil
	case domain.ModalityImageCaption:
		return c.imageCollection, nil
	default:
		return "", fmt.Errorf("unknown modality %q", modality)
	}
}

func (c *Client) IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.DocumentChunk, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch")
	}

	if err := c.ensureCollection(ctx, c.textCollection, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		payload := map[string]any{
			"chunk_id":    chunk.ID,
			"document_id": doc.ID,
			"source_name": doc.SourceName,
			"source_type": string(doc.SourceType),
			"source_url":  doc.SourceURL,
			"chunk_type":  string(chunk.ChunkType),
			"text":        chunk.Text,
		}
		if chunk.PageNumber != nil {
			payload["page_number"] = *chunk.PageNumber
		}
		points = append(points, point{
			ID:      chunk.ID,
			Vector:  vectors[i],
			Payload: payload,
		})
	}

	body, err := json.Marshal(map[string]any{"points": points})
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.textCollection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant upsert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant upsert status: %s", resp.Status)
	}
	return nil
}

func (c *Client) SearchNearest(ctx context.Context, queryVector []float32, modality domain.Modality, limit int) ([]domain.VectorHit, error) {
	collection, err := c.collectionFor(modality)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Collection not created yet: nothing indexed for this modality.
		return nil, nil
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant search status: %s", resp.Status)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.VectorHit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.VectorHit{
			Row: rowFromPayload(r.Payload, modality),
			// Cosine scores arrive as similarity; callers work in distance.
			Distance: 1 - r.Score,
		})
	}
	return out, nil
}

func rowFromPayload(payload map[string]any, modality domain.Modality) domain.EvidenceRow {
	row := domain.EvidenceRow{
		DocumentID: getStringPayload(payload, "document_id"),
		SourceName: getStringPayload(payload, "source_name"),
		SourceType: domain.SourceType(getStringPayload(payload, "source_type")),
		SourceURL:  getStringPayload(payload, "source_url"),
		ChunkText:  getStringPayload(payload, "text"),
	}
	if v, ok := payload["page_number"].(float64); ok {
		page := int(v)
		row.PageNumber = &page
	}

	if modality == domain.ModalityImageCaption {
		if id := getStringPayload(payload, "image_id"); id != "" {
			row.ImageID = &id
		}
		row.ImageKey = getStringPayload(payload, "storage_key")
		row.ChunkType = domain.ChunkImage
		row.EvidenceType = "image"
		return row
	}

	if id := getStringPayload(payload, "chunk_id"); id != "" {
		row.ChunkID = &id
	}
	row.ChunkType = domain.ChunkType(getStringPayload(payload, "chunk_type"))
	if row.ChunkType == "" {
		row.ChunkType = domain.ChunkText
	}
	row.EvidenceType = "chunk"
	return row
}

func (c *Client) ensureCollection(ctx context.Context, collection string, vectorSize int) error {
	c.ensureMu.Lock()
	if size, ok := c.ensured[collection]; ok && size == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	body, err := json.Marshal(map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	})
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if already exists (depends on version/config).
	if resp.StatusCode == http.StatusConflict {
		c.markCollectionEnsured(collection, vectorSize)
		return nil
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return fmt.Errorf("qdrant ensure collection status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("qdrant ensure collection status: %s", resp.Status)
	}
	c.markCollectionEnsured(collection, vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(collection string, vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensured[collection] = vectorSize
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
