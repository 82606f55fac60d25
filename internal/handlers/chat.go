package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/utils"
)

// ChatService is the part of the conversation service the chat Lambda uses.
type ChatService interface {
	StartSession(ctx context.Context) (*models.Session, error)
	HandleMessage(ctx context.Context, sessionID, text string) (*models.ChatResponse, error)
}

// ChatHandler serves the conversation over API Gateway proxy events.
type ChatHandler struct {
	conv     ChatService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(conv ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		conv:     conv,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   utils.OrNop(logger),
	}
}

// Handle routes POST /sessions and POST /sessions/{id}/messages.
func (h *ChatHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if request.HTTPMethod == http.MethodOptions {
		return proxyResponse(http.StatusOK, Response{Success: true}), nil
	}
	if request.HTTPMethod != http.MethodPost {
		return proxyResponse(http.StatusMethodNotAllowed, Response{Success: false, Error: "method not allowed"}), nil
	}

	switch {
	case strings.TrimSuffix(request.Resource, "/") == "/sessions":
		return h.startSession(ctx), nil
	case strings.HasSuffix(request.Resource, "/messages"):
		return h.message(ctx, request), nil
	default:
		return proxyResponse(http.StatusNotFound, Response{Success: false, Error: "route not found"}), nil
	}
}

func (h *ChatHandler) startSession(ctx context.Context) events.APIGatewayProxyResponse {
	sess, err := h.conv.StartSession(ctx)
	if err != nil {
		h.logger.Error("Failed to start session", zap.Error(err))
		return errorResponse(err)
	}
	return proxyResponse(http.StatusCreated, Response{Success: true, Message: "Session started", Data: sess})
}

func (h *ChatHandler) message(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	sessionID := request.PathParameters["id"]
	if sessionID == "" {
		return proxyResponse(http.StatusBadRequest, Response{Success: false, Error: "missing session id"})
	}

	var req MessageRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return proxyResponse(http.StatusBadRequest, Response{Success: false, Error: fmt.Sprintf("invalid JSON: %v", err)})
	}
	if err := h.validate.Struct(req); err != nil {
		return proxyResponse(http.StatusBadRequest, Response{Success: false, Error: "message is required and at most 2000 characters"})
	}

	resp, err := h.conv.HandleMessage(ctx, sessionID, req.Message)
	if err != nil {
		if resp != nil {
			h.logger.Warn("Returning envelope without advisor reply",
				zap.String("session_id", sessionID),
				zap.Error(err))
			return proxyResponse(StatusFor(err), Response{Success: false, Error: err.Error(), Data: resp})
		}
		if StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error("Message failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		return errorResponse(err)
	}
	return proxyResponse(http.StatusOK, Response{Success: true, Data: resp})
}
