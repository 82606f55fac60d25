package gemini

import (
	"context"
	"fmt"

	"loan-matchmaker/internal/services/conversation"
)

const advisorSystem = "You are a helpful, honest loan advisor. Do not promise approval."

// maxPromptMatches caps how many ranked lenders the advisor is shown.
const maxPromptMatches = 5

// Advisor writes the borrower-facing reply for a turn.
type Advisor struct {
	gen textGenerator
}

// NewAdvisor creates an Advisor backed by gen.
func NewAdvisor(gen textGenerator) *Advisor {
	return &Advisor{gen: gen}
}

// Respond implements conversation.Advisor.
func (a *Advisor) Respond(ctx context.Context, req conversation.AdvisorRequest) (string, error) {
	matches := req.Matches
	if len(matches) > maxPromptMatches {
		matches = matches[:maxPromptMatches]
	}

	missing := ""
	if len(req.Missing) > 0 {
		missing = parameterList(req.Missing)
	}

	prompt, err := render("advise.tmpl", map[string]any{
		"Action":     string(req.Action),
		"State":      string(req.State),
		"Completion": req.Tracking.CompletionPercentage,
		"Known":      knownParameters(req.Parameters),
		"Missing":    missing,
		"Next":       string(req.NextParameter),
		"Warning":    req.Warning,
		"Matches":    matches,
		"Message":    req.Message,
	})
	if err != nil {
		return "", fmt.Errorf("render advisor prompt: %w", err)
	}

	return a.gen.Generate(ctx, advisorSystem, prompt, false)
}
