package conversation

import (
	"context"

	"loan-matchmaker/internal/models"
)

// ExtractionRequest is what the extraction collaborator sees for one message.
type ExtractionRequest struct {
	Message    string
	Parameters models.LoanParameters
	Missing    []models.ParameterName
}

// Extraction is the collaborator's reading of a message. Values are untrusted
// and go through the same validation as direct writes.
type Extraction struct {
	Parameters []models.ParameterValue
	OffTopic   bool
}

// Extractor pulls loan parameters out of free-form text.
type Extractor interface {
	Extract(ctx context.Context, req ExtractionRequest) (*Extraction, error)
}

// AdvisorRequest carries the structured state the advisor writes its reply
// around.
type AdvisorRequest struct {
	Message       string
	Action        models.Action
	State         models.SessionState
	Parameters    models.LoanParameters
	Tracking      models.ParameterTracking
	Missing       []models.ParameterName
	NextParameter models.ParameterName
	Warning       string
	Matches       []models.LenderMatch
}

// Advisor writes the user-facing reply.
type Advisor interface {
	Respond(ctx context.Context, req AdvisorRequest) (string, error)
}
