package main

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"loan-matchmaker/internal/app"
	"loan-matchmaker/internal/handlers"
	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/services/matcher"
	"loan-matchmaker/internal/services/ses"
)

// matchPayload is the JSON form of a matching run.
type matchPayload struct {
	SessionID        string               `json:"sessionId"`
	Method           models.ScoringMethod `json:"method"`
	TotalLenders     int                  `json:"totalLenders"`
	Excluded         int                  `json:"excluded"`
	Waived           int                  `json:"waived"`
	FallbackReason   string               `json:"fallbackReason,omitempty"`
	ProcessingTimeMs int64                `json:"processingTimeMs"`
	Matches          []models.LenderMatch `json:"matches"`
}

func newMatchPayload(sessionID string, res *matcher.Result) matchPayload {
	matches := res.Matches
	if matches == nil {
		matches = []models.LenderMatch{}
	}
	return matchPayload{
		SessionID:        sessionID,
		Method:           res.Method,
		TotalLenders:     res.TotalLenders,
		Excluded:         res.Excluded,
		Waived:           res.Waived,
		FallbackReason:   res.FallbackReason,
		ProcessingTimeMs: res.ProcessingTime.Milliseconds(),
		Matches:          matches,
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]string{"status": "healthy"}})
		return
	}
	h := s.health(r.Context())
	status := http.StatusOK
	if h.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, Response{Success: status == http.StatusOK, Data: h})
}

func (s *Server) startSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.conv.StartSession(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "Session started", Data: sess})
}

func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.conv.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: snap})
}

// messageHandler returns the envelope even when the advisor is down, with a
// 503 status so the client knows the reply text is missing.
func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := s.decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	resp, err := s.conv.HandleMessage(r.Context(), r.PathValue("id"), req.Message)
	if err != nil {
		if resp != nil {
			s.logger.Warn("Returning envelope without advisor reply",
				zap.String("session_id", resp.SessionID),
				zap.Error(err))
			writeJSON(w, handlers.StatusFor(err), Response{Success: false, Error: err.Error(), Data: resp})
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: resp})
}

func (s *Server) parameterHandler(w http.ResponseWriter, r *http.Request) {
	name := models.ParameterName(r.PathValue("name"))
	if !name.IsKnown() {
		s.writeError(w, r, fmt.Errorf("%w: %q", models.ErrUnknownParameter, name))
		return
	}

	var req ParameterRequest
	if err := s.decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	res, err := s.conv.UpdateParameter(r.Context(), r.PathValue("id"), name, req.Value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Parameter updated", Data: res})
}

func (s *Server) matchHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, err := s.conv.RunMatching(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: newMatchPayload(id, res)})
}

func (s *Server) matchesHandler(w http.ResponseWriter, r *http.Request) {
	matches, err := s.conv.Matches(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if matches == nil {
		matches = []models.LenderMatch{}
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: matches})
}

func (s *Server) endSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.conv.EndSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Session ended", Data: sess})
}

func (s *Server) emailHandler(w http.ResponseWriter, r *http.Request) {
	if s.mailer == nil {
		writeJSON(w, http.StatusNotImplemented, Response{Success: false, Error: "email delivery is not configured"})
		return
	}

	var req EmailRequest
	if err := s.decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	id := r.PathValue("id")
	snap, err := s.conv.Session(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	matches, err := s.conv.Matches(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.mailer.SendMatchSummary(r.Context(), req.Email, ses.MatchSummary{
		SessionID:  id,
		Parameters: snap.Parameters,
		Matches:    matches,
	})
	if err != nil {
		if errors.Is(err, ses.ErrNoMatches) {
			s.writeError(w, r, err)
			return
		}
		s.logger.Error("Failed to send match summary", zap.String("session_id", id), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, Response{Success: false, Error: "failed to send email"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Email sent", Data: res})
}

func (s *Server) lendersHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: s.engine.Lenders()})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusNotImplemented, Response{Success: false, Error: app.ErrNoDatabase.Error()})
		return
	}
	stats, err := s.stats(r.Context())
	if errors.Is(err, app.ErrNoDatabase) {
		writeJSON(w, http.StatusNotImplemented, Response{Success: false, Error: err.Error()})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: stats})
}
