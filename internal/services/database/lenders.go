package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"loan-matchmaker/internal/models"
)

// LenderRepository reads and seeds the lender catalog table.
type LenderRepository struct {
	db *DB
}

// List returns every lender ordered by id.
func (r *LenderRepository) List(ctx context.Context) ([]models.Lender, error) {
	query := `
		SELECT id, name, interest_rate, min_loan_amount, max_loan_amount, min_income,
			min_credit_score, employment_types, loan_purpose, special_eligibility,
			processing_time_days, features
		FROM lenders
		ORDER BY id`

	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query lenders: %w", err)
	}
	defer rows.Close()

	var lenders []models.Lender
	for rows.Next() {
		l, err := scanLender(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lender: %w", err)
		}
		lenders = append(lenders, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lenders: %w", err)
	}
	return lenders, nil
}

// Upsert writes every lender in one transaction and returns how many rows
// were written.
func (r *LenderRepository) Upsert(ctx context.Context, lenders []models.Lender) (int, error) {
	query := `
		INSERT INTO lenders (
			id, name, interest_rate, min_loan_amount, max_loan_amount, min_income,
			min_credit_score, employment_types, loan_purpose, special_eligibility,
			processing_time_days, features, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			interest_rate = EXCLUDED.interest_rate,
			min_loan_amount = EXCLUDED.min_loan_amount,
			max_loan_amount = EXCLUDED.max_loan_amount,
			min_income = EXCLUDED.min_income,
			min_credit_score = EXCLUDED.min_credit_score,
			employment_types = EXCLUDED.employment_types,
			loan_purpose = EXCLUDED.loan_purpose,
			special_eligibility = EXCLUDED.special_eligibility,
			processing_time_days = EXCLUDED.processing_time_days,
			features = EXCLUDED.features,
			updated_at = NOW()`

	written := 0
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for _, l := range lenders {
			employment, err := json.Marshal(nonNil(l.EmploymentTypes))
			if err != nil {
				return fmt.Errorf("failed to encode employment types: %w", err)
			}
			features, err := json.Marshal(nonNil(l.Features))
			if err != nil {
				return fmt.Errorf("failed to encode features: %w", err)
			}

			if _, err := tx.Exec(ctx, query,
				l.ID, l.Name, l.InterestRate, l.MinLoanAmount, l.MaxLoanAmount, l.MinIncome,
				l.MinCreditScore, employment, l.LoanPurpose, l.SpecialEligibility,
				l.ProcessingTimeDays, features,
			); err != nil {
				return fmt.Errorf("failed to upsert lender %d: %w", l.ID, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func scanLender(row pgx.Row) (models.Lender, error) {
	var (
		l                    models.Lender
		employment, features []byte
	)
	err := row.Scan(
		&l.ID, &l.Name, &l.InterestRate, &l.MinLoanAmount, &l.MaxLoanAmount, &l.MinIncome,
		&l.MinCreditScore, &employment, &l.LoanPurpose, &l.SpecialEligibility,
		&l.ProcessingTimeDays, &features,
	)
	if err != nil {
		return l, err
	}
	if err := json.Unmarshal(employment, &l.EmploymentTypes); err != nil {
		return l, fmt.Errorf("invalid employment_types: %w", err)
	}
	if err := json.Unmarshal(features, &l.Features); err != nil {
		return l, fmt.Errorf("invalid features: %w", err)
	}
	return l, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
