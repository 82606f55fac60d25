package models

import (
	"strings"
)

// ParameterName identifies a loan parameter collected during a conversation.
type ParameterName string

const (
	ParamLoanAmount         ParameterName = "loanAmount"
	ParamAnnualIncome       ParameterName = "annualIncome"
	ParamEmploymentStatus   ParameterName = "employmentStatus"
	ParamCreditScore        ParameterName = "creditScore"
	ParamLoanPurpose        ParameterName = "loanPurpose"
	ParamDebtToIncomeRatio  ParameterName = "debtToIncomeRatio"
	ParamEmploymentDuration ParameterName = "employmentDuration"
)

// Parameter bounds.
const (
	MinLoanAmount  = 100_000.0
	MaxLoanAmount  = 100_000_000.0
	MinCreditScore = 300
	MaxCreditScore = 850
)

// MandatoryParameters returns the parameters required before matching, in the
// order the advisor asks for them.
func MandatoryParameters() []ParameterName {
	return []ParameterName{
		ParamLoanAmount,
		ParamLoanPurpose,
		ParamAnnualIncome,
		ParamCreditScore,
		ParamEmploymentStatus,
	}
}

// AllParameters returns every parameter name the tracker accepts.
func AllParameters() []ParameterName {
	return append(MandatoryParameters(), ParamDebtToIncomeRatio, ParamEmploymentDuration)
}

// IsKnown reports whether the name is a parameter the tracker accepts.
func (p ParameterName) IsKnown() bool {
	for _, name := range AllParameters() {
		if p == name {
			return true
		}
	}
	return false
}

// IsMandatory reports whether the parameter counts toward completion.
func (p ParameterName) IsMandatory() bool {
	for _, name := range MandatoryParameters() {
		if p == name {
			return true
		}
	}
	return false
}

// EmploymentStatus represents the applicant's employment type.
type EmploymentStatus string

const (
	EmploymentSalaried     EmploymentStatus = "salaried"
	EmploymentSelfEmployed EmploymentStatus = "self-employed"
	EmploymentFreelancer   EmploymentStatus = "freelancer"
	EmploymentStudent      EmploymentStatus = "student"
	EmploymentUnemployed   EmploymentStatus = "unemployed"
)

// ValidEmploymentStatuses returns all valid employment status values.
func ValidEmploymentStatuses() []EmploymentStatus {
	return []EmploymentStatus{
		EmploymentSalaried,
		EmploymentSelfEmployed,
		EmploymentFreelancer,
		EmploymentStudent,
		EmploymentUnemployed,
	}
}

// IsValid checks if the employment status is valid.
func (e EmploymentStatus) IsValid() bool {
	for _, valid := range ValidEmploymentStatuses() {
		if e == valid {
			return true
		}
	}
	return false
}

// NormalizeEmploymentStatus converts common spellings to a canonical status.
// Unknown inputs are returned normalized but will fail IsValid.
func NormalizeEmploymentStatus(status string) EmploymentStatus {
	normalized := normalizeToken(status)

	statusMap := map[string]EmploymentStatus{
		"salaried":       EmploymentSalaried,
		"employed":       EmploymentSalaried,
		"full-time":      EmploymentSalaried,
		"fulltime":       EmploymentSalaried,
		"part-time":      EmploymentSalaried,
		"salary":         EmploymentSalaried,
		"self-employed":  EmploymentSelfEmployed,
		"selfemployed":   EmploymentSelfEmployed,
		"business-owner": EmploymentSelfEmployed,
		"entrepreneur":   EmploymentSelfEmployed,
		"freelancer":     EmploymentFreelancer,
		"freelance":      EmploymentFreelancer,
		"contractor":     EmploymentFreelancer,
		"gig-worker":     EmploymentFreelancer,
		"student":        EmploymentStudent,
		"studying":       EmploymentStudent,
		"unemployed":     EmploymentUnemployed,
		"jobless":        EmploymentUnemployed,
		"not-employed":   EmploymentUnemployed,
	}

	if mapped, ok := statusMap[normalized]; ok {
		return mapped
	}
	return EmploymentStatus(normalized)
}

// LoanPurpose is the reason the applicant is borrowing.
type LoanPurpose string

const (
	PurposeHome       LoanPurpose = "home"
	PurposeVehicle    LoanPurpose = "vehicle"
	PurposeEducation  LoanPurpose = "education"
	PurposeBusiness   LoanPurpose = "business"
	PurposeStartup    LoanPurpose = "startup"
	PurposeEco        LoanPurpose = "eco"
	PurposeEmergency  LoanPurpose = "emergency"
	PurposeGoldBacked LoanPurpose = "gold-backed"
	PurposePersonal   LoanPurpose = "personal"
)

// ValidLoanPurposes returns all valid loan purposes.
func ValidLoanPurposes() []LoanPurpose {
	return []LoanPurpose{
		PurposeHome,
		PurposeVehicle,
		PurposeEducation,
		PurposeBusiness,
		PurposeStartup,
		PurposeEco,
		PurposeEmergency,
		PurposeGoldBacked,
		PurposePersonal,
	}
}

// IsValid checks if the purpose is one of the catalog purposes.
func (p LoanPurpose) IsValid() bool {
	for _, valid := range ValidLoanPurposes() {
		if p == valid {
			return true
		}
	}
	return false
}

// NormalizeLoanPurpose maps free-form purpose strings onto the catalog purposes.
func NormalizeLoanPurpose(purpose string) LoanPurpose {
	normalized := normalizeToken(purpose)

	purposeMap := map[string]LoanPurpose{
		"home":        PurposeHome,
		"house":       PurposeHome,
		"housing":     PurposeHome,
		"mortgage":    PurposeHome,
		"property":    PurposeHome,
		"vehicle":     PurposeVehicle,
		"car":         PurposeVehicle,
		"auto":        PurposeVehicle,
		"bike":        PurposeVehicle,
		"two-wheeler": PurposeVehicle,
		"education":   PurposeEducation,
		"study":       PurposeEducation,
		"tuition":     PurposeEducation,
		"business":    PurposeBusiness,
		"startup":     PurposeStartup,
		"start-up":    PurposeStartup,
		"eco":         PurposeEco,
		"green":       PurposeEco,
		"solar":       PurposeEco,
		"ev":          PurposeEco,
		"emergency":   PurposeEmergency,
		"medical":     PurposeEmergency,
		"gold-backed": PurposeGoldBacked,
		"gold":        PurposeGoldBacked,
		"gold-loan":   PurposeGoldBacked,
		"personal":    PurposePersonal,
		"wedding":     PurposePersonal,
		"travel":      PurposePersonal,
	}

	if mapped, ok := purposeMap[normalized]; ok {
		return mapped
	}
	return LoanPurpose(normalized)
}

func normalizeToken(s string) string {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.Join(strings.Fields(normalized), "-")
	return normalized
}

// LoanParameters holds the values collected for a session. Nil fields are not
// yet collected.
type LoanParameters struct {
	LoanAmount         *float64          `json:"loanAmount,omitempty"`
	AnnualIncome       *float64          `json:"annualIncome,omitempty"`
	EmploymentStatus   *EmploymentStatus `json:"employmentStatus,omitempty"`
	CreditScore        *int              `json:"creditScore,omitempty"`
	LoanPurpose        *LoanPurpose      `json:"loanPurpose,omitempty"`
	DebtToIncomeRatio  *float64          `json:"debtToIncomeRatio,omitempty"`
	EmploymentDuration *int              `json:"employmentDuration,omitempty"`
}

// Has reports whether the named parameter has been collected.
func (p *LoanParameters) Has(name ParameterName) bool {
	switch name {
	case ParamLoanAmount:
		return p.LoanAmount != nil
	case ParamAnnualIncome:
		return p.AnnualIncome != nil
	case ParamEmploymentStatus:
		return p.EmploymentStatus != nil
	case ParamCreditScore:
		return p.CreditScore != nil
	case ParamLoanPurpose:
		return p.LoanPurpose != nil
	case ParamDebtToIncomeRatio:
		return p.DebtToIncomeRatio != nil
	case ParamEmploymentDuration:
		return p.EmploymentDuration != nil
	}
	return false
}

// Set stores an already validated value. The value type must match the
// parameter: float64 for amounts and ratios, int for credit score and
// duration, and the enum types for status and purpose.
func (p *LoanParameters) Set(name ParameterName, value any) error {
	switch name {
	case ParamLoanAmount, ParamAnnualIncome, ParamDebtToIncomeRatio:
		v, ok := value.(float64)
		if !ok {
			return NewValidationError(name, value, "expected a number")
		}
		switch name {
		case ParamLoanAmount:
			p.LoanAmount = &v
		case ParamAnnualIncome:
			p.AnnualIncome = &v
		default:
			p.DebtToIncomeRatio = &v
		}
	case ParamCreditScore, ParamEmploymentDuration:
		v, ok := value.(int)
		if !ok {
			return NewValidationError(name, value, "expected an integer")
		}
		if name == ParamCreditScore {
			p.CreditScore = &v
		} else {
			p.EmploymentDuration = &v
		}
	case ParamEmploymentStatus:
		v, ok := value.(EmploymentStatus)
		if !ok {
			return NewValidationError(name, value, "expected an employment status")
		}
		p.EmploymentStatus = &v
	case ParamLoanPurpose:
		v, ok := value.(LoanPurpose)
		if !ok {
			return NewValidationError(name, value, "expected a loan purpose")
		}
		p.LoanPurpose = &v
	default:
		return ErrUnknownParameter
	}
	return nil
}

// Profile is a complete set of mandatory parameters ready for matching.
type Profile struct {
	LoanAmount       float64          `json:"loanAmount"`
	AnnualIncome     float64          `json:"annualIncome"`
	EmploymentStatus EmploymentStatus `json:"employmentStatus"`
	CreditScore      int              `json:"creditScore"`
	LoanPurpose      LoanPurpose      `json:"loanPurpose"`
}

// Profile returns the matching profile, or ErrIncompleteProfile when any
// mandatory parameter is missing.
func (p *LoanParameters) Profile() (Profile, error) {
	if p.LoanAmount == nil || p.AnnualIncome == nil || p.EmploymentStatus == nil ||
		p.CreditScore == nil || p.LoanPurpose == nil {
		return Profile{}, ErrIncompleteProfile
	}
	return Profile{
		LoanAmount:       *p.LoanAmount,
		AnnualIncome:     *p.AnnualIncome,
		EmploymentStatus: *p.EmploymentStatus,
		CreditScore:      *p.CreditScore,
		LoanPurpose:      *p.LoanPurpose,
	}, nil
}

// ParameterValue is a single name/value pair, as produced by extraction or
// carried in a response envelope.
type ParameterValue struct {
	Name  ParameterName `json:"name"`
	Value any           `json:"value"`
}
