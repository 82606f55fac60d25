// Package handlers holds the AWS Lambda handlers and the transport helpers
// shared with the HTTP server.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/services/ses"
)

// Response represents a standard API response.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MessageRequest is the body of a chat message.
type MessageRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrUnknownParameter):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrSessionNotFound), errors.Is(err, models.ErrLenderNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrSessionEnded), errors.Is(err, models.ErrIncompleteProfile),
		errors.Is(err, ses.ErrNoMatches):
		return http.StatusConflict
	case errors.Is(err, models.ErrCollaboratorUnavailable), errors.Is(err, models.ErrMalformedCollaboratorOutput):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type,Authorization",
	"Access-Control-Allow-Methods": "GET,POST,OPTIONS",
	"Content-Type":                 "application/json",
}

func proxyResponse(status int, body any) events.APIGatewayProxyResponse {
	payload, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		payload = []byte(`{"success":false,"error":"internal error"}`)
	}
	headers := make(map[string]string, len(corsHeaders))
	for k, v := range corsHeaders {
		headers[k] = v
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(payload),
	}
}

func errorResponse(err error) events.APIGatewayProxyResponse {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	return proxyResponse(status, Response{Success: false, Error: msg})
}
