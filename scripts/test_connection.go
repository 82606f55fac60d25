//go:build ignore

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"loan-matchmaker/internal/config"
	"loan-matchmaker/internal/services/cache"
	"loan-matchmaker/internal/services/database"
	s3service "loan-matchmaker/internal/services/s3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("🔍 Testing backend connections...")
	fmt.Println()

	fmt.Println("1️⃣  Checking Environment Variables:")
	for _, name := range []string{"DB_HOST", "REDIS_ADDR", "GEMINI_API_KEY", "ML_MODEL_S3_BUCKET", "SES_FROM_EMAIL"} {
		checkEnvVar(name)
	}
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fmt.Println("2️⃣  Testing Database Connection:")
	testDatabase(ctx, cfg)
	fmt.Println()

	fmt.Println("3️⃣  Testing Redis Connection:")
	testRedis(ctx, cfg)
	fmt.Println()

	fmt.Println("4️⃣  Testing Model Artifact:")
	testModel(ctx, cfg)
	fmt.Println()

	fmt.Println("✅ Connection tests complete!")
}

func checkEnvVar(name string) {
	value := os.Getenv(name)
	if value == "" {
		fmt.Printf("   ❌ %s: NOT SET\n", name)
		return
	}
	masked := value
	if len(value) > 8 && name == "GEMINI_API_KEY" {
		masked = value[:4] + "..." + value[len(value)-4:]
	}
	fmt.Printf("   ✅ %s: %s\n", name, masked)
}

func testDatabase(ctx context.Context, cfg *config.Config) {
	if !cfg.DatabaseEnabled() {
		fmt.Println("   ⏭️  DB_HOST not set, skipping")
		return
	}

	db, err := database.New(ctx, cfg)
	if err != nil {
		fmt.Printf("   ❌ Database connection failed: %v\n", err)
		return
	}
	defer db.Close()
	fmt.Println("   ✅ Database connection successful!")

	lenders, err := db.Lenders().List(ctx)
	if err != nil {
		fmt.Printf("   ⚠️  Could not read lenders (run scripts/init_db.go): %v\n", err)
		return
	}
	fmt.Printf("   📊 Lenders in database: %d\n", len(lenders))
}

func testRedis(ctx context.Context, cfg *config.Config) {
	if !cfg.RedisEnabled() {
		fmt.Println("   ⏭️  REDIS_ADDR not set, skipping")
		return
	}

	client, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		fmt.Printf("   ❌ Redis connection failed: %v\n", err)
		return
	}
	defer client.Close()
	fmt.Println("   ✅ Redis connection successful!")
}

func testModel(ctx context.Context, cfg *config.Config) {
	if cfg.MLModelS3Bucket == "" {
		fmt.Println("   ⏭️  ML_MODEL_S3_BUCKET not set, skipping")
		return
	}

	svc, err := s3service.NewService(ctx, cfg.AWSRegion, cfg.MLModelS3Bucket, nil)
	if err != nil {
		fmt.Printf("   ❌ Failed to create S3 client: %v\n", err)
		return
	}
	model, err := svc.LoadModel(ctx, cfg.MLModelS3Key)
	if err != nil {
		fmt.Printf("   ❌ Failed to load s3://%s/%s: %v\n", cfg.MLModelS3Bucket, cfg.MLModelS3Key, err)
		return
	}
	fmt.Printf("   ✅ Model loaded: %d layers\n", len(model.Layers))
}
