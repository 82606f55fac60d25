package models

// ScoringMethod indicates which scorer produced a match's final score.
type ScoringMethod string

const (
	ScoringRuleBased ScoringMethod = "rule_based"
	ScoringML        ScoringMethod = "ml"
)

// Gate names a hard eligibility check.
type Gate string

const (
	GateLoanAmount  Gate = "loan_amount"
	GateIncome      Gate = "income"
	GateCreditScore Gate = "credit_score"
	GateEmployment  Gate = "employment"
	GatePurpose     Gate = "purpose"
)

// IsNumeric reports whether the gate is a numeric minimum that can never be
// waived.
func (g Gate) IsNumeric() bool {
	return g == GateLoanAmount || g == GateIncome || g == GateCreditScore
}

// GateResults holds the outcome of each gate for one lender.
type GateResults struct {
	LoanAmountInRange bool `json:"loanAmountInRange"`
	IncomeMeets       bool `json:"incomeMeets"`
	CreditMeets       bool `json:"creditMeets"`
	EmploymentMatch   bool `json:"employmentMatch"`
	PurposeMatch      bool `json:"purposeMatch"`
}

// Failed returns the gates that did not pass, in check order.
func (g GateResults) Failed() []Gate {
	var failed []Gate
	if !g.LoanAmountInRange {
		failed = append(failed, GateLoanAmount)
	}
	if !g.IncomeMeets {
		failed = append(failed, GateIncome)
	}
	if !g.CreditMeets {
		failed = append(failed, GateCreditScore)
	}
	if !g.EmploymentMatch {
		failed = append(failed, GateEmployment)
	}
	if !g.PurposeMatch {
		failed = append(failed, GatePurpose)
	}
	return failed
}

// LenderMatch is one scored, explained entry of a ranked match list.
type LenderMatch struct {
	Lender              Lender        `json:"lender"`
	EligibilityScore    float64       `json:"eligibilityScore"`
	AffordabilityScore  float64       `json:"affordabilityScore"`
	SpecializationScore float64       `json:"specializationScore"`
	FinalScore          float64       `json:"finalScore"`
	Reasons             []string      `json:"reasons"`
	Confidence          float64       `json:"confidence"`
	ScoringMethod       ScoringMethod `json:"scoringMethod"`
	IsGoodMatch         bool          `json:"isGoodMatch"`
	MatchProbability    *float64      `json:"matchProbability,omitempty"`
	WaivedGate          Gate          `json:"waivedGate,omitempty"`
	Gates               GateResults   `json:"gates"`
}
