// Chat Lambda entry point
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
	if !cfg.DatabaseEnabled() {
		log.Fatal("DB_HOST is required: sessions must outlive a single invocation")
	}

	if err := utils.InitLogger(cfg.LogLevel, "json"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer utils.Sync()
	logger := utils.GetLogger()

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer a.Close()

	lambda.Start(handlers.NewChatHandler(a.Conversation, logger.Named("chat")).Handle)
}
