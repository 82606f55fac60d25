// Health Check Lambda entry point
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"loan-matchmaker/internal/app"
	"loan-matchmaker/internal/config"
	"loan-matchmaker/internal/handlers"
	"loan-matchmaker/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := utils.InitLogger(cfg.LogLevel, "json"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer utils.Sync()

	a, err := app.New(context.Background(), cfg, utils.GetLogger())
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer a.Close()

	lambda.Start(handlers.NewHealthHandler(a.Health).Handle)
}
