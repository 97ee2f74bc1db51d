package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// EnsureUser upserts by email and touches last_login_at on every ask.
func (r *UserRepository) EnsureUser(ctx context.Context, email, fullName string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("ensure user: empty email")
	}

	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
INSERT INTO users (id, email, full_name, created_at, last_login_at)
VALUES ($1,$2,$3,$4,$4)
ON CONFLICT (email) DO UPDATE
SET last_login_at = EXCLUDED.last_login_at,
    full_name = CASE WHEN EXCLUDED.full_name <> '' THEN EXCLUDED.full_name ELSE users.full_name END
RETURNING id
`, uuid.NewString(), email, strings.TrimSpace(fullName), now)

	var id string
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}
	return id, nil
}
