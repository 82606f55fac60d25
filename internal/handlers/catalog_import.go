package handlers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"loan-matchmaker/internal/catalog"
	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/utils"
)

const (
	processedPrefix = "processed/"
	maxReportErrors = 10
)

type objectStore interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// LenderWriter persists imported lenders.
type LenderWriter interface {
	Upsert(ctx context.Context, lenders []models.Lender) (int, error)
}

// CatalogImportHandler loads lender CSV files dropped into S3.
type CatalogImportHandler struct {
	objects objectStore
	lenders LenderWriter
	logger  *zap.Logger
}

// NewCatalogImportHandler creates an import handler.
func NewCatalogImportHandler(client *s3.Client, lenders LenderWriter, logger *zap.Logger) *CatalogImportHandler {
	return newCatalogImportHandler(client, lenders, logger)
}

func newCatalogImportHandler(objects objectStore, lenders LenderWriter, logger *zap.Logger) *CatalogImportHandler {
	return &CatalogImportHandler{objects: objects, lenders: lenders, logger: utils.OrNop(logger)}
}

// ImportResult is the result of importing one file.
type ImportResult struct {
	Message  string   `json:"message"`
	Key      string   `json:"key,omitempty"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Handle processes the first record of an S3 event.
func (h *CatalogImportHandler) Handle(ctx context.Context, s3Event events.S3Event) (ImportResult, error) {
	if len(s3Event.Records) == 0 {
		return ImportResult{Message: "No records to process"}, nil
	}

	record := s3Event.Records[0]
	bucket := record.S3.Bucket.Name
	key, err := url.QueryUnescape(record.S3.Object.Key)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to decode S3 key: %w", err)
	}
	if strings.HasPrefix(key, processedPrefix) {
		return ImportResult{Message: "Already processed", Key: key}, nil
	}

	h.logger.Info("Importing lender catalog",
		zap.String("bucket", bucket),
		zap.String("key", key))

	out, err := h.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer out.Body.Close()

	lenders, rowErrs := catalog.ParseCSV(out.Body)
	result := ImportResult{Key: key, Skipped: len(rowErrs), Errors: errorStrings(rowErrs)}

	if len(lenders) == 0 {
		result.Message = "No valid lenders found in CSV"
		h.logger.Warn("Catalog import rejected",
			zap.String("key", key),
			zap.Int("errors", len(rowErrs)))
		return result, nil
	}

	written, err := h.lenders.Upsert(ctx, lenders)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to save lenders: %w", err)
	}
	result.Imported = written
	result.Message = "Catalog imported"

	h.logger.Info("Catalog imported",
		zap.String("key", key),
		zap.Int("imported", written),
		zap.Int("skipped", result.Skipped))

	if err := h.archive(ctx, bucket, key); err != nil {
		h.logger.Warn("Failed to archive catalog file", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

// archive moves the processed file under processed/.
func (h *CatalogImportHandler) archive(ctx context.Context, bucket, key string) error {
	if _, err := h.objects.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		CopySource: aws.String(bucket + "/" + key),
		Key:        aws.String(processedPrefix + key),
	}); err != nil {
		return fmt.Errorf("failed to copy to archive: %w", err)
	}

	if _, err := h.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete original: %w", err)
	}
	return nil
}

func errorStrings(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) > maxReportErrors {
		errs = errs[:maxReportErrors]
	}
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
