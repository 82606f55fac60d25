// Package s3service fetches and publishes scoring model artifacts on S3.
package s3service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"loan-matchmaker/internal/services/matcher"
	"loan-matchmaker/internal/utils"
)

// objectAPI is the subset of *s3.Client the service calls.
type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Service reads and writes objects in one bucket.
type Service struct {
	client     objectAPI
	bucketName string
	logger     *zap.Logger
}

// NewService creates a Service using the default AWS credential chain.
func NewService(ctx context.Context, region, bucket string, logger *zap.Logger) (*Service, error) {
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newService(s3.NewFromConfig(cfg), bucket, logger), nil
}

func newService(client objectAPI, bucket string, logger *zap.Logger) *Service {
	return &Service{client: client, bucketName: bucket, logger: utils.OrNop(logger)}
}

// DownloadFile returns the object's content.
func (s *Service) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Error("Failed to download file from S3",
			zap.String("bucket", s.bucketName),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}

	s.logger.Info("Downloaded file from S3",
		zap.String("bucket", s.bucketName),
		zap.String("key", key),
		zap.Int("size", len(data)),
	)
	return data, nil
}

// UploadFile writes data under key.
func (s *Service) UploadFile(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error("Failed to upload file to S3",
			zap.String("bucket", s.bucketName),
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("failed to upload file: %w", err)
	}

	s.logger.Info("Uploaded file to S3",
		zap.String("bucket", s.bucketName),
		zap.String("key", key),
		zap.Int("size", len(data)),
	)
	return nil
}

// FileExists reports whether key exists. Errors other than not-found are
// returned.
func (s *Service) FileExists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check object: %w", err)
}

// LoadModel downloads and validates the scoring model stored under key.
func (s *Service) LoadModel(ctx context.Context, key string) (*matcher.Model, error) {
	data, err := s.DownloadFile(ctx, key)
	if err != nil {
		return nil, err
	}
	model, err := matcher.LoadModel(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("model s3://%s/%s: %w", s.bucketName, key, err)
	}
	return model, nil
}

// PublishModel validates model and uploads it as JSON under key.
func (s *Service) PublishModel(ctx context.Context, key string, data []byte) error {
	if _, err := matcher.LoadModel(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("refusing to publish invalid model: %w", err)
	}
	return s.UploadFile(ctx, key, data, "application/json")
}
