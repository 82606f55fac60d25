package params

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-matchmaker/internal/models"
)

func TestValidate_AcceptsAndCoerces(t *testing.T) {
	tests := []struct {
		name  string
		param models.ParameterName
		raw   any
		want  any
	}{
		{"loan amount float", models.ParamLoanAmount, 300000.0, 300000.0},
		{"loan amount int", models.ParamLoanAmount, 300000, 300000.0},
		{"loan amount grouped string", models.ParamLoanAmount, "3,00,000", 300000.0},
		{"loan amount lakh suffix", models.ParamLoanAmount, "5 lakh", 500000.0},
		{"loan amount rupee sign", models.ParamLoanAmount, "₹2,50,000", 250000.0},
		{"loan amount lower bound", models.ParamLoanAmount, models.MinLoanAmount, models.MinLoanAmount},
		{"income json number", models.ParamAnnualIncome, json.Number("900000"), 900000.0},
		{"credit score string", models.ParamCreditScore, "720", 720},
		{"credit score float whole", models.ParamCreditScore, 720.0, 720},
		{"employment synonym", models.ParamEmploymentStatus, "Self Employed", models.EmploymentSelfEmployed},
		{"employment contractor", models.ParamEmploymentStatus, "contractor", models.EmploymentFreelancer},
		{"purpose synonym", models.ParamLoanPurpose, "Car", models.PurposeVehicle},
		{"purpose gold", models.ParamLoanPurpose, "gold", models.PurposeGoldBacked},
		{"ratio", models.ParamDebtToIncomeRatio, 0.35, 0.35},
		{"duration zero", models.ParamEmploymentDuration, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.param, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_RejectsOutOfBound(t *testing.T) {
	tests := []struct {
		name  string
		param models.ParameterName
		raw   any
	}{
		{"loan below range", models.ParamLoanAmount, 99999.0},
		{"loan above range", models.ParamLoanAmount, 100000001.0},
		{"loan not a number", models.ParamLoanAmount, "a lot"},
		{"income zero", models.ParamAnnualIncome, 0.0},
		{"income negative", models.ParamAnnualIncome, -5.0},
		{"credit below range", models.ParamCreditScore, 299},
		{"credit above range", models.ParamCreditScore, 851},
		{"credit fractional", models.ParamCreditScore, 700.5},
		{"employment unknown", models.ParamEmploymentStatus, "astronaut"},
		{"purpose wildcard", models.ParamLoanPurpose, "any"},
		{"purpose unknown", models.ParamLoanPurpose, "yacht racing"},
		{"ratio above one", models.ParamDebtToIncomeRatio, 1.2},
		{"duration negative", models.ParamEmploymentDuration, -1},
		{"unknown parameter", models.ParameterName("age"), 30},
		{"nil value", models.ParamLoanAmount, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.param, tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrValidation), "expected ErrValidation, got %v", err)

			var vErr *models.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.param, vErr.Parameter)
		})
	}
}
