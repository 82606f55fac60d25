package matcher

import (
	"fmt"

	"loan-matchmaker/internal/models"
)

// Reason thresholds.
const (
	// MarketAverageRate is the interest rate below which a lender is called
	// competitive.
	MarketAverageRate = 10.5

	strongCreditBuffer = 100
	goodCreditBuffer   = 50

	fastProcessingDays = 3
	highAffordability  = 80.0
)

// FallbackReason is used when no qualitative distinction applies.
const FallbackReason = "Standard eligibility match"

// buildReasons explains a match. The order is fixed so both scorers produce
// the same list for the same inputs.
func buildReasons(p models.Profile, l *models.Lender, waived models.Gate, affordability float64) []string {
	var reasons []string

	switch waived {
	case models.GateEmployment:
		reasons = append(reasons, fmt.Sprintf("Special eligibility (%s) waives employment type requirement", l.SpecialEligibility))
	case models.GatePurpose:
		reasons = append(reasons, fmt.Sprintf("Special eligibility (%s) waives loan purpose requirement", l.SpecialEligibility))
	}

	switch {
	case l.AcceptsAnyPurpose():
		reasons = append(reasons, "Offers flexible loan purposes")
	case models.LoanPurpose(l.LoanPurpose) == p.LoanPurpose:
		reasons = append(reasons, fmt.Sprintf("Specializes in %s loans", p.LoanPurpose))
	}

	creditBuffer := p.CreditScore - l.MinCreditScore
	switch {
	case creditBuffer >= strongCreditBuffer:
		reasons = append(reasons, "Strong credit profile")
	case creditBuffer >= goodCreditBuffer:
		reasons = append(reasons, "Good credit fit")
	}

	if l.MinIncome > 0 {
		ratio := p.AnnualIncome / l.MinIncome
		switch {
		case ratio >= 2.0:
			reasons = append(reasons, "Income well exceeds minimum requirement")
		case ratio >= 1.5:
			reasons = append(reasons, "Income comfortably meets requirement")
		case ratio >= 1.0:
			reasons = append(reasons, "Meets income requirement")
		}
	}

	if l.InterestRate < MarketAverageRate {
		reasons = append(reasons, fmt.Sprintf("Competitive interest rate of %.1f%%", l.InterestRate))
	}

	if affordability >= highAffordability {
		reasons = append(reasons, "Loan amount well within borrowing capacity")
	}

	if l.ProcessingTimeDays > 0 && l.ProcessingTimeDays <= fastProcessingDays {
		reasons = append(reasons, fmt.Sprintf("Fast processing in %d days", l.ProcessingTimeDays))
	}

	if len(reasons) == 0 {
		reasons = append(reasons, FallbackReason)
	}
	return reasons
}
