package matcher

import (
	"math"

	"loan-matchmaker/internal/models"
)

// Scoring constants.
const (
	// CreditReferenceRange is the width of the credit score scale (850-300).
	CreditReferenceRange = 550.0
	// IncomeRatioCap is the income-to-minimum multiple at which the income
	// component saturates.
	IncomeRatioCap = 2.0

	// BaseIncomeMultiple and CreditIncomeMultiple define borrowing capacity as
	// income × (base + credit × creditFactor), creditFactor in [0,1].
	BaseIncomeMultiple   = 2.0
	CreditIncomeMultiple = 4.0
	// AffordabilityHeadroom is the capacity-to-loan multiple that earns a full
	// affordability score.
	AffordabilityHeadroom = 2.0

	// WildcardSpecializationCredit is the share of the specialization score a
	// lender accepting any purpose receives.
	WildcardSpecializationCredit = 0.5

	EligibilityWeight    = 0.40
	AffordabilityWeight  = 0.35
	SpecializationWeight = 0.25

	// DecisionBoundary is the final score separating weak from good matches.
	DecisionBoundary = 50.0
)

// evaluateGates runs the five hard checks for one lender.
func evaluateGates(p models.Profile, l *models.Lender) models.GateResults {
	return models.GateResults{
		LoanAmountInRange: p.LoanAmount >= l.MinLoanAmount && p.LoanAmount <= l.MaxLoanAmount,
		IncomeMeets:       p.AnnualIncome >= l.MinIncome,
		CreditMeets:       p.CreditScore >= l.MinCreditScore,
		EmploymentMatch:   l.AcceptsEmployment(p.EmploymentStatus),
		PurposeMatch:      l.AcceptsPurpose(p.LoanPurpose),
	}
}

// resolveWaiver decides whether the lender is eligible. A lender with special
// eligibility may waive a single failing employment or purpose gate; numeric
// gates are never waived. It returns the waived gate (empty when none) and
// whether the lender stays in the ranking.
func resolveWaiver(gates models.GateResults, l *models.Lender) (models.Gate, bool) {
	failed := gates.Failed()
	switch {
	case len(failed) == 0:
		return "", true
	case len(failed) == 1 && !failed[0].IsNumeric() && l.HasSpecialEligibility():
		return failed[0], true
	default:
		return "", false
	}
}

// marginsPassed counts gates cleared with room to spare rather than on the
// boundary or by waiver.
func marginsPassed(p models.Profile, l *models.Lender, gates models.GateResults) int {
	n := 0
	if p.LoanAmount > l.MinLoanAmount && p.LoanAmount < l.MaxLoanAmount {
		n++
	}
	if p.AnnualIncome > l.MinIncome {
		n++
	}
	if p.CreditScore > l.MinCreditScore {
		n++
	}
	if gates.EmploymentMatch {
		n++
	}
	if gates.PurposeMatch {
		n++
	}
	return n
}

// eligibilityScore gives up to 50 points for credit standing on the 300-850
// scale and up to 50 for the income multiple over the lender's minimum.
func eligibilityScore(p models.Profile, l *models.Lender) float64 {
	creditPart := 50 * math.Min(1, creditFactor(p.CreditScore))

	incomePart := 50.0
	if l.MinIncome > 0 {
		ratio := math.Min(IncomeRatioCap, p.AnnualIncome/l.MinIncome)
		incomePart = 50 * ratio / IncomeRatioCap
	}

	return clamp(creditPart+incomePart, 0, 100)
}

// affordabilityScore compares the requested amount with a borrowing capacity
// derived from income and credit score.
func affordabilityScore(p models.Profile) float64 {
	if p.LoanAmount <= 0 {
		return 100
	}
	capacity := p.AnnualIncome * (BaseIncomeMultiple + CreditIncomeMultiple*creditFactor(p.CreditScore))
	return clamp(100*capacity/(AffordabilityHeadroom*p.LoanAmount), 0, 100)
}

// specializationScore rewards lenders focused on the requested purpose.
func specializationScore(p models.Profile, l *models.Lender) float64 {
	switch {
	case l.AcceptsAnyPurpose():
		return 100 * WildcardSpecializationCredit
	case models.LoanPurpose(l.LoanPurpose) == p.LoanPurpose:
		return 100
	default:
		return 0
	}
}

func finalScore(eligibility, affordability, specialization float64) float64 {
	return clamp(
		EligibilityWeight*eligibility+AffordabilityWeight*affordability+SpecializationWeight*specialization,
		0, 100)
}

// confidence blends the distance from the decision boundary with the share of
// gates passed with margin.
func confidence(final float64, margins int) float64 {
	distance := math.Min(1, math.Abs(final-DecisionBoundary)/DecisionBoundary)
	return clamp(0.5*distance+0.5*float64(margins)/5, 0, 1)
}

func creditFactor(score int) float64 {
	return clamp(float64(score-models.MinCreditScore)/CreditReferenceRange, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
