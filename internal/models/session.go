package models

import "time"

// SessionState is the conversation state of a session.
type SessionState string

const (
	StateCollecting   SessionState = "collecting"
	StateReadyToMatch SessionState = "ready_to_match"
	StateMatched      SessionState = "matched"
	StateEnded        SessionState = "ended"
)

// Action tells the client what the advisor did with a message.
type Action string

const (
	ActionCollectParameter Action = "collect_parameter"
	ActionTriggerMatching  Action = "trigger_matching"
	ActionAnswerQuestion   Action = "answer_question"
	ActionRedirect         Action = "redirect"
)

// Session is the lifecycle record of one conversation.
type Session struct {
	ID        string       `json:"id" db:"id"`
	State     SessionState `json:"state" db:"state"`
	CreatedAt time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time    `json:"updatedAt" db:"updated_at"`
	EndedAt   *time.Time   `json:"endedAt,omitempty" db:"ended_at"`
}

// IsEnded reports whether the session accepts no further writes.
func (s *Session) IsEnded() bool {
	return s.State == StateEnded
}

// ChatResponse is the envelope returned for every inbound message.
type ChatResponse struct {
	SessionID            string          `json:"sessionId"`
	State                SessionState    `json:"state"`
	Action               Action          `json:"action"`
	Message              string          `json:"message"`
	CompletionPercentage int             `json:"completionPercentage"`
	MissingParameters    []ParameterName `json:"missingParameters"`
	NextParameter        ParameterName   `json:"nextParameter,omitempty"`
	ParameterUpdate      *ParameterValue `json:"parameterUpdate,omitempty"`
	Warning              string          `json:"warning,omitempty"`
	Matches              []LenderMatch   `json:"matches,omitempty"`
}

// SessionSnapshot is a read-only view of a session and its parameters.
type SessionSnapshot struct {
	Session           Session           `json:"session"`
	Parameters        LoanParameters    `json:"parameters"`
	Tracking          ParameterTracking `json:"tracking"`
	MissingParameters []ParameterName   `json:"missingParameters"`
}
