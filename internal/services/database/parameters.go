package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"loan-matchmaker/internal/models"
)

// ParameterRepository stores each session's collected parameters as JSONB.
type ParameterRepository struct {
	db *DB
}

// Get returns the record, or nil when nothing was stored for the session.
func (r *ParameterRepository) Get(ctx context.Context, sessionID string) (*models.ParameterRecord, error) {
	query := `
		SELECT parameters, updated_at
		FROM session_parameters
		WHERE session_id = $1`

	var (
		raw []byte
		rec = models.ParameterRecord{SessionID: sessionID}
	)
	err := r.db.pool.QueryRow(ctx, query, sessionID).Scan(&raw, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parameters: %w", err)
	}

	if err := json.Unmarshal(raw, &rec.Parameters); err != nil {
		return nil, fmt.Errorf("failed to decode parameters: %w", err)
	}
	rec.Tracking = models.ComputeTracking(&rec.Parameters)
	return &rec, nil
}

// Put upserts the record.
func (r *ParameterRepository) Put(ctx context.Context, rec *models.ParameterRecord) error {
	raw, err := json.Marshal(rec.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}

	query := `
		INSERT INTO session_parameters (session_id, parameters, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET
			parameters = EXCLUDED.parameters,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.pool.Exec(ctx, query, rec.SessionID, raw, rec.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save parameters: %w", err)
	}
	return nil
}
