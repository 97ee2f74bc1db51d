package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/contextforge/contextforge/internal/core/domain"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) SaveAsk(ctx context.Context, entry *domain.AskHistoryEntry) error {
	documentsJSON, err := json.Marshal(entry.DocumentsUsed)
	if err != nil {
		return fmt.Errorf("marshal documents used: %w", err)
	}
	chunksJSON, err := json.Marshal(entry.ChunksUsed)
	if err != nil {
		return fmt.Errorf("marshal chunks used: %w", err)
	}
	imagesJSON, err := json.Marshal(entry.ImagesUsed)
	if err != nil {
		return fmt.Errorf("marshal images used: %w", err)
	}
	linksJSON, err := json.Marshal(entry.WebpageLinks)
	if err != nil {
		return fmt.Errorf("marshal webpage links: %w", err)
	}
	traceJSON, err := json.Marshal(entry.Trace)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}

	var userID any
	if entry.UserID != "" {
		userID = entry.UserID
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO ask_history (
	id, user_id, user_email, question, answer, conversation_id,
	documents_used, chunks_used, images_used, webpage_links,
	confidence_percent, grounded, retrieval_outcome, fallback_mode, trace, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`,
		entry.ID, userID, strings.ToLower(entry.UserEmail), entry.Question, entry.Answer, entry.ConversationID,
		documentsJSON, chunksJSON, imagesJSON, linksJSON,
		entry.ConfidencePercent, entry.Grounded, string(entry.RetrievalOutcome), string(entry.FallbackMode),
		traceJSON, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ask history: %w", err)
	}
	return nil
}

func (r *HistoryRepository) ListRecent(ctx context.Context, userEmail string, limit int) ([]domain.AskHistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, COALESCE(user_id, ''), user_email, question, answer, conversation_id,
	documents_used, chunks_used, images_used, webpage_links,
	confidence_percent, grounded, retrieval_outcome, fallback_mode, trace, created_at
FROM ask_history
WHERE user_email = $1
ORDER BY created_at DESC
LIMIT $2
`, strings.ToLower(userEmail), limit)
	if err != nil {
		return nil, fmt.Errorf("query ask history: %w", err)
	}
	defer rows.Close()

	var out []domain.AskHistoryEntry
	for rows.Next() {
		var entry domain.AskHistoryEntry
		var documentsRaw, chunksRaw, imagesRaw, linksRaw, traceRaw []byte
		var outcome, mode string
		err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.UserEmail, &entry.Question, &entry.Answer, &entry.ConversationID,
			&documentsRaw, &chunksRaw, &imagesRaw, &linksRaw,
			&entry.ConfidencePercent, &entry.Grounded, &outcome, &mode, &traceRaw, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ask history: %w", err)
		}

		if err := json.Unmarshal(documentsRaw, &entry.DocumentsUsed); err != nil {
			return nil, fmt.Errorf("unmarshal documents used: %w", err)
		}
		if err := json.Unmarshal(chunksRaw, &entry.ChunksUsed); err != nil {
			return nil, fmt.Errorf("unmarshal chunks used: %w", err)
		}
		if err := json.Unmarshal(imagesRaw, &entry.ImagesUsed); err != nil {
			return nil, fmt.Errorf("unmarshal images used: %w", err)
		}
		if err := json.Unmarshal(linksRaw, &entry.WebpageLinks); err != nil {
			return nil, fmt.Errorf("unmarshal webpage links: %w", err)
		}
		if err := json.Unmarshal(traceRaw, &entry.Trace); err != nil {
			return nil, fmt.Errorf("unmarshal trace: %w", err)
		}
		entry.RetrievalOutcome = domain.RetrievalOutcome(outcome)
		entry.FallbackMode = domain.FallbackMode(mode)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ask history: %w", err)
	}
	return out, nil
}
