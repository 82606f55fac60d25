package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"loan-matchmaker/internal/models"
)

// MatchRepository stores the latest ranked match list per session.
type MatchRepository struct {
	db *DB
}

// Save replaces the session's stored list inside one transaction.
func (r *MatchRepository) Save(ctx context.Context, sessionID string, matches []models.LenderMatch) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := deleteMatches(ctx, tx, sessionID); err != nil {
			return err
		}
		if len(matches) == 0 {
			return nil
		}

		now := time.Now().UTC()
		batch := &pgx.Batch{}
		for i := range matches {
			raw, err := json.Marshal(matches[i])
			if err != nil {
				return fmt.Errorf("failed to encode match: %w", err)
			}
			batch.Queue(`
				INSERT INTO session_matches (session_id, rank, lender_id, final_score, match, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				sessionID, i+1, matches[i].Lender.ID, matches[i].FinalScore, raw, now)
		}

		results := tx.SendBatch(ctx, batch)
		for range matches {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to insert match: %w", err)
			}
		}
		return results.Close()
	})
}

// Get returns the stored list in rank order, or nil when none was saved.
func (r *MatchRepository) Get(ctx context.Context, sessionID string) ([]models.LenderMatch, error) {
	query := `
		SELECT match
		FROM session_matches
		WHERE session_id = $1
		ORDER BY rank`

	rows, err := r.db.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []models.LenderMatch
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		var m models.LenderMatch
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("failed to decode match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read matches: %w", err)
	}
	return matches, nil
}

// Delete removes the session's stored list.
func (r *MatchRepository) Delete(ctx context.Context, sessionID string) error {
	return deleteMatches(ctx, r.db.pool, sessionID)
}

// LenderStats summarizes how often a lender has been ranked.
type LenderStats struct {
	LenderID     int64   `json:"lenderId"`
	Appearances  int     `json:"appearances"`
	TopRanked    int     `json:"topRanked"`
	AverageScore float64 `json:"averageScore"`
}

// StatsByLender aggregates stored match lists per lender.
func (r *MatchRepository) StatsByLender(ctx context.Context) ([]LenderStats, error) {
	query := `
		SELECT lender_id,
			COUNT(*),
			COUNT(*) FILTER (WHERE rank = 1),
			COALESCE(AVG(final_score), 0)
		FROM session_matches
		GROUP BY lender_id
		ORDER BY lender_id`

	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query lender stats: %w", err)
	}
	defer rows.Close()

	var stats []LenderStats
	for rows.Next() {
		var s LenderStats
		if err := rows.Scan(&s.LenderID, &s.Appearances, &s.TopRanked, &s.AverageScore); err != nil {
			return nil, fmt.Errorf("failed to scan lender stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func deleteMatches(ctx context.Context, q querier, sessionID string) error {
	if _, err := q.Exec(ctx, `DELETE FROM session_matches WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete matches: %w", err)
	}
	return nil
}
