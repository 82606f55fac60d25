package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"loan-matchmaker/internal/models"
)

// SessionRepository stores session lifecycle records.
type SessionRepository struct {
	db *DB
}

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (id, state, created_at, updated_at, ended_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.pool.Exec(ctx, query, s.ID, string(s.State), s.CreatedAt, s.UpdatedAt, s.EndedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get returns the session, or nil when it does not exist.
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, state, created_at, updated_at, ended_at
		FROM sessions
		WHERE id = $1`

	var (
		s     models.Session
		state string
	)
	err := r.db.pool.QueryRow(ctx, query, id).Scan(&s.ID, &state, &s.CreatedAt, &s.UpdatedAt, &s.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s.State = models.SessionState(state)
	return &s, nil
}

// Update writes the session's state and timestamps.
func (r *SessionRepository) Update(ctx context.Context, s *models.Session) error {
	query := `
		UPDATE sessions
		SET state = $2, updated_at = $3, ended_at = $4
		WHERE id = $1`

	tag, err := r.db.pool.Exec(ctx, query, s.ID, string(s.State), s.UpdatedAt, s.EndedAt)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

// CountByState returns the number of sessions in each state.
func (r *SessionRepository) CountByState(ctx context.Context) (map[models.SessionState]int, error) {
	rows, err := r.db.pool.Query(ctx, `SELECT state, COUNT(*) FROM sessions GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.SessionState]int)
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan session count: %w", err)
		}
		counts[models.SessionState(state)] = n
	}
	return counts, rows.Err()
}
