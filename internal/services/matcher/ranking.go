package matcher

import (
	"sort"

	"loan-matchmaker/internal/models"
)

// rankMatches orders matches by final score, then eligibility score, then
// lower interest rate, then lower lender id.
func rankMatches(matches []models.LenderMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		return rankedBefore(&matches[i], &matches[j])
	})
}

func rankedBefore(a, b *models.LenderMatch) bool {
	if a.FinalScore != b.FinalScore {
		return a.FinalScore > b.FinalScore
	}
	if a.EligibilityScore != b.EligibilityScore {
		return a.EligibilityScore > b.EligibilityScore
	}
	if a.Lender.InterestRate != b.Lender.InterestRate {
		return a.Lender.InterestRate < b.Lender.InterestRate
	}
	return a.Lender.ID < b.Lender.ID
}
