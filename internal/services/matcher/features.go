package matcher

import (
	"math"

	"loan-matchmaker/internal/models"
)

// FeatureCount is the width of the model input.
const FeatureCount = 10

// Fixed normalization denominators for the numeric features.
const (
	LoanAmountNorm   = 10_000_000.0
	AnnualIncomeNorm = 5_000_000.0
	CreditScoreNorm  = 850.0
	InterestRateNorm = 20.0
)

// FeatureVector is the model input for one (profile, lender) pair.
type FeatureVector [FeatureCount]float64

// FeatureNames lists the features in vector order.
var FeatureNames = [FeatureCount]string{
	"loan_amount_norm",
	"annual_income_norm",
	"credit_score_norm",
	"interest_rate_norm",
	"employment_match",
	"purpose_match",
	"special_eligibility",
	"loan_to_max_ratio",
	"income_to_min_ratio",
	"credit_buffer",
}

// Features builds the normalized feature vector for a profile and lender.
func Features(p models.Profile, l *models.Lender) FeatureVector {
	incomeToMin := 1.0
	if l.MinIncome > 0 {
		incomeToMin = p.AnnualIncome / l.MinIncome
	}

	loanToMax := 0.0
	if l.MaxLoanAmount > 0 {
		loanToMax = p.LoanAmount / l.MaxLoanAmount
	}

	return FeatureVector{
		math.Min(1, p.LoanAmount/LoanAmountNorm),
		math.Min(1, p.AnnualIncome/AnnualIncomeNorm),
		float64(p.CreditScore) / CreditScoreNorm,
		math.Min(1, l.InterestRate/InterestRateNorm),
		indicator(l.AcceptsEmployment(p.EmploymentStatus)),
		indicator(l.AcceptsPurpose(p.LoanPurpose)),
		indicator(l.HasSpecialEligibility()),
		loanToMax,
		incomeToMin,
		math.Max(0, float64(p.CreditScore-l.MinCreditScore)/CreditReferenceRange),
	}
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
