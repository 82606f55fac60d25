package handlers

import (
	"context"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"

	"loan-matchmaker/internal/app"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	check func(context.Context) app.HealthStatus
}

// NewHealthHandler creates a health handler around a backend check.
func NewHealthHandler(check func(context.Context) app.HealthStatus) *HealthHandler {
	return &HealthHandler{check: check}
}

// HealthResponse is the response structure for health checks.
type HealthResponse struct {
	app.HealthStatus
	Service string `json:"service"`
	Version string `json:"version"`
	Stage   string `json:"stage"`
}

// Handle processes health check requests.
func (h *HealthHandler) Handle(ctx context.Context, _ events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	response := HealthResponse{
		HealthStatus: h.check(ctx),
		Service:      "loan-matchmaker",
		Version:      getEnvOrDefault("SERVICE_VERSION", "1.0.0"),
		Stage:        getEnvOrDefault("STAGE", "unknown"),
	}

	statusCode := http.StatusOK
	if response.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	return proxyResponse(statusCode, response), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
