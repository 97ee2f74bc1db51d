package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/contextforge/contextforge/internal/core/domain"
)

// ChunkRepository stores extracted chunks and serves substring search over
// text chunks and image captions. Searches only see documents in ready
// status.
type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM text_chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}

	for _, chunk := range chunks {
		_, err := tx.ExecContext(ctx, `
INSERT INTO text_chunks (id, document_id, chunk_index, chunk_type, chunk_text, page_number)
VALUES ($1,$2,$3,$4,$5,$6)
`,
			chunk.ID, chunk.DocumentID, chunk.ChunkIndex, string(chunk.ChunkType), chunk.Text, chunk.PageNumber,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk tx: %w", err)
	}
	return nil
}

func (r *ChunkRepository) FullChunks(ctx context.Context, documentID string) ([]domain.DocumentChunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, chunk_index, chunk_type, chunk_text, page_number
FROM text_chunks
WHERE document_id = $1
ORDER BY chunk_index ASC
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query full chunks: %w", err)
	}
	defer rows.Close()

	var out []domain.DocumentChunk
	for rows.Next() {
		var chunk domain.DocumentChunk
		var chunkType string
		var page sql.NullInt64
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex, &chunkType, &chunk.Text, &page); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunk.ChunkType = domain.ChunkType(chunkType)
		if page.Valid {
			v := int(page.Int64)
			chunk.PageNumber = &v
		}
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func (r *ChunkRepository) SearchSubstring(ctx context.Context, tokens []string, modality domain.Modality, limit int) ([]domain.LexicalHit, error) {
	if len(tokens) == 0 || limit <= 0 {
		return nil, nil
	}

	switch modality {
	case domain.ModalityText:
		return r.searchTextChunks(ctx, tokens, limit)
	case domain.ModalityImageCaption:
		return r.searchImageCaptions(ctx, tokens, limit)
	default:
		return nil, fmt.Errorf("unknown modality %q", modality)
	}
}

// matchCountExpr builds the per-row ILIKE match counter over column for
// placeholders $first..$first+n-1. Each token contributes 0 or 1.
func matchCountExpr(column string, tokenCount, first int) string {
	terms := make([]string, 0, tokenCount)
	for i := 0; i < tokenCount; i++ {
		terms = append(terms, fmt.Sprintf("(CASE WHEN %s ILIKE '%%' || $%d || '%%' THEN 1 ELSE 0 END)", column, first+i))
	}
	return strings.Join(terms, " + ")
}

func tokenArgs(tokens []string, limit int) []any {
	args := make([]any, 0, len(tokens)+1)
	for _, token := range tokens {
		args = append(args, token)
	}
	return append(args, limit)
}

func (r *ChunkRepository) searchTextChunks(ctx context.Context, tokens []string, limit int) ([]domain.LexicalHit, error) {
	expr := matchCountExpr("c.chunk_text", len(tokens), 1)
	query := fmt.Sprintf(`
SELECT c.id, c.document_id, d.source_name, d.source_type, d.source_url, c.chunk_text, c.chunk_type, c.page_number, (%s) AS match_count
FROM text_chunks c
JOIN documents d ON d.id = c.document_id
WHERE d.status = 'ready' AND (%s) > 0
ORDER BY match_count DESC, c.id DESC
LIMIT $%d
`, expr, expr, len(tokens)+1)

	rows, err := r.db.QueryContext(ctx, query, tokenArgs(tokens, limit)...)
	if err != nil {
		return nil, fmt.Errorf("query text chunks: %w", err)
	}
	defer rows.Close()

	var hits []domain.LexicalHit
	for rows.Next() {
		var hit domain.LexicalHit
		var chunkID, sourceType, chunkType string
		var page sql.NullInt64
		err := rows.Scan(
			&chunkID, &hit.Row.DocumentID, &hit.Row.SourceName, &sourceType, &hit.Row.SourceURL,
			&hit.Row.ChunkText, &chunkType, &page, &hit.MatchCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan text hit: %w", err)
		}
		hit.Row.ChunkID = &chunkID
		hit.Row.SourceType = domain.SourceType(sourceType)
		hit.Row.ChunkType = domain.ChunkType(chunkType)
		hit.Row.EvidenceType = "chunk"
		if page.Valid {
			v := int(page.Int64)
			hit.Row.PageNumber = &v
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate text hits: %w", err)
	}
	return hits, nil
}

func (r *ChunkRepository) searchImageCaptions(ctx context.Context, tokens []string, limit int) ([]domain.LexicalHit, error) {
	expr := matchCountExpr("i.caption", len(tokens), 1)
	query := fmt.Sprintf(`
SELECT i.id, i.document_id, d.source_name, d.source_type, d.source_url, i.caption, i.storage_key, i.page_number, (%s) AS match_count
FROM image_assets i
JOIN documents d ON d.id = i.document_id
WHERE d.status = 'ready' AND (%s) > 0
ORDER BY match_count DESC, i.id DESC
LIMIT $%d
`, expr, expr, len(tokens)+1)

	rows, err := r.db.QueryContext(ctx, query, tokenArgs(tokens, limit)...)
	if err != nil {
		return nil, fmt.Errorf("query image captions: %w", err)
	}
	defer rows.Close()

	var hits []domain.LexicalHit
	for rows.Next() {
		var hit domain.LexicalHit
		var imageID, sourceType string
		var page sql.NullInt64
		err := rows.Scan(
			&imageID, &hit.Row.DocumentID, &hit.Row.SourceName, &sourceType, &hit.Row.SourceURL,
			&hit.Row.ChunkText, &hit.Row.ImageKey, &page, &hit.MatchCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan image hit: %w", err)
		}
		hit.Row.ImageID = &imageID
		hit.Row.SourceType = domain.SourceType(sourceType)
		hit.Row.ChunkType = domain.ChunkImage
		hit.Row.EvidenceType = "image"
		if page.Valid {
			v := int(page.Int64)
			hit.Row.PageNumber = &v
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate image hits: %w", err)
	}
	return hits, nil
}
