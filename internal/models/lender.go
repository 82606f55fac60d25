package models

// Wildcard accepts any employment type or loan purpose.
const Wildcard = "any"

// Lender is a read-only catalog entry.
type Lender struct {
	ID                 int64    `json:"id" yaml:"id" db:"id"`
	Name               string   `json:"name" yaml:"name" db:"name"`
	InterestRate       float64  `json:"interestRate" yaml:"interest_rate" db:"interest_rate"`
	MinLoanAmount      float64  `json:"minLoanAmount" yaml:"min_loan_amount" db:"min_loan_amount"`
	MaxLoanAmount      float64  `json:"maxLoanAmount" yaml:"max_loan_amount" db:"max_loan_amount"`
	MinIncome          float64  `json:"minIncome" yaml:"min_income" db:"min_income"`
	MinCreditScore     int      `json:"minCreditScore" yaml:"min_credit_score" db:"min_credit_score"`
	EmploymentTypes    []string `json:"employmentTypes" yaml:"employment_types" db:"employment_types"`
	LoanPurpose        string   `json:"loanPurpose" yaml:"loan_purpose" db:"loan_purpose"`
	SpecialEligibility string   `json:"specialEligibility,omitempty" yaml:"special_eligibility" db:"special_eligibility"`
	ProcessingTimeDays int      `json:"processingTimeDays" yaml:"processing_time_days" db:"processing_time_days"`
	Features           []string `json:"features,omitempty" yaml:"features" db:"features"`
}

// AcceptsEmployment reports whether the lender accepts the employment status,
// either directly or through the wildcard.
func (l *Lender) AcceptsEmployment(status EmploymentStatus) bool {
	for _, t := range l.EmploymentTypes {
		if t == Wildcard || EmploymentStatus(t) == status {
			return true
		}
	}
	return false
}

// AcceptsAnyPurpose reports whether the lender's purpose is the wildcard.
func (l *Lender) AcceptsAnyPurpose() bool {
	return l.LoanPurpose == "" || l.LoanPurpose == Wildcard
}

// AcceptsPurpose reports whether the lender lends for the purpose.
func (l *Lender) AcceptsPurpose(purpose LoanPurpose) bool {
	return l.AcceptsAnyPurpose() || LoanPurpose(l.LoanPurpose) == purpose
}

// HasSpecialEligibility reports whether the lender carries a special
// eligibility program.
func (l *Lender) HasSpecialEligibility() bool {
	return l.SpecialEligibility != ""
}
