package models

import "time"

// ParameterTracking records which mandatory parameters a session has collected.
type ParameterTracking struct {
	LoanAmount           bool `json:"loanAmount"`
	AnnualIncome         bool `json:"annualIncome"`
	EmploymentStatus     bool `json:"employmentStatus"`
	CreditScore          bool `json:"creditScore"`
	LoanPurpose          bool `json:"loanPurpose"`
	CompletionPercentage int  `json:"completionPercentage"`
}

// ComputeTracking derives the tracking record from the collected parameters.
func ComputeTracking(p *LoanParameters) ParameterTracking {
	t := ParameterTracking{
		LoanAmount:       p.Has(ParamLoanAmount),
		AnnualIncome:     p.Has(ParamAnnualIncome),
		EmploymentStatus: p.Has(ParamEmploymentStatus),
		CreditScore:      p.Has(ParamCreditScore),
		LoanPurpose:      p.Has(ParamLoanPurpose),
	}

	collected := 0
	for _, ok := range []bool{t.LoanAmount, t.AnnualIncome, t.EmploymentStatus, t.CreditScore, t.LoanPurpose} {
		if ok {
			collected++
		}
	}
	t.CompletionPercentage = collected * 100 / len(MandatoryParameters())
	return t
}

// IsComplete reports whether every mandatory parameter is collected.
func (t ParameterTracking) IsComplete() bool {
	return t.CompletionPercentage == 100
}

// MissingParameters returns the mandatory parameters not yet collected, in
// asking order.
func MissingParameters(p *LoanParameters) []ParameterName {
	missing := []ParameterName{}
	for _, name := range MandatoryParameters() {
		if !p.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// ParameterRecord is the persisted parameter state of one session.
type ParameterRecord struct {
	SessionID  string            `json:"sessionId"`
	Parameters LoanParameters    `json:"parameters"`
	Tracking   ParameterTracking `json:"tracking"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// TrackingResult is returned by a successful parameter update.
type TrackingResult struct {
	SessionID         string            `json:"sessionId"`
	Updated           ParameterValue    `json:"updated"`
	Parameters        LoanParameters    `json:"parameters"`
	Tracking          ParameterTracking `json:"tracking"`
	MissingParameters []ParameterName   `json:"missingParameters"`
	IsComplete        bool              `json:"isComplete"`
}
