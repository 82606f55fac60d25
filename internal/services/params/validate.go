// Package params validates loan parameters and tracks per-session collection progress.
package params

import (
	"math"

	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/utils"
)

// Validate coerces an untrusted value for the named parameter and checks its
// bound. The returned value has the type models.LoanParameters.Set expects.
func Validate(name models.ParameterName, raw any) (any, error) {
	if !name.IsKnown() {
		return nil, models.NewValidationError(name, raw, "unknown parameter")
	}
	if raw == nil {
		return nil, models.NewValidationError(name, raw, "value is required")
	}

	switch name {
	case models.ParamLoanAmount:
		f := utils.CoerceFloat(raw)
		if !isFinite(f) {
			return nil, models.NewValidationError(name, raw, "must be a number")
		}
		if f < models.MinLoanAmount || f > models.MaxLoanAmount {
			return nil, models.NewValidationError(name, raw, "must be between %.0f and %.0f",
				models.MinLoanAmount, models.MaxLoanAmount)
		}
		return f, nil

	case models.ParamAnnualIncome:
		f := utils.CoerceFloat(raw)
		if !isFinite(f) {
			return nil, models.NewValidationError(name, raw, "must be a number")
		}
		if f <= 0 {
			return nil, models.NewValidationError(name, raw, "must be positive")
		}
		return f, nil

	case models.ParamCreditScore:
		score, ok := utils.CoerceInt(raw)
		if !ok {
			return nil, models.NewValidationError(name, raw, "must be a whole number")
		}
		if score < models.MinCreditScore || score > models.MaxCreditScore {
			return nil, models.NewValidationError(name, raw, "must be between %d and %d",
				models.MinCreditScore, models.MaxCreditScore)
		}
		return score, nil

	case models.ParamEmploymentStatus:
		status := models.NormalizeEmploymentStatus(utils.CoerceString(raw))
		if !status.IsValid() {
			return nil, models.NewValidationError(name, raw, "must be one of %v", models.ValidEmploymentStatuses())
		}
		return status, nil

	case models.ParamLoanPurpose:
		purpose := models.NormalizeLoanPurpose(utils.CoerceString(raw))
		if !purpose.IsValid() {
			return nil, models.NewValidationError(name, raw, "must be one of %v", models.ValidLoanPurposes())
		}
		return purpose, nil

	case models.ParamDebtToIncomeRatio:
		f := utils.CoerceFloat(raw)
		if !isFinite(f) {
			return nil, models.NewValidationError(name, raw, "must be a number")
		}
		if f < 0 || f > 1 {
			return nil, models.NewValidationError(name, raw, "must be between 0 and 1")
		}
		return f, nil

	case models.ParamEmploymentDuration:
		months, ok := utils.CoerceInt(raw)
		if !ok {
			return nil, models.NewValidationError(name, raw, "must be a whole number of months")
		}
		if months < 0 {
			return nil, models.NewValidationError(name, raw, "cannot be negative")
		}
		return months, nil
	}

	return nil, models.NewValidationError(name, raw, "unknown parameter")
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
