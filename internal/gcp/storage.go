package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// An existing object is not an error: reruns of the same step are idempotent.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, content io.Reader) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)

	if _, err := io.Copy(writer, content); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping write.", "gcsObject", objectName)
			return nil
		}
		slog.Error("Failed to copy content to GCS object", "gcsObject", objectName, "error", err)
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping write.", "gcsObject", objectName)
			return nil
		}
		slog.Error("Failed to close GCS writer", "gcsObject", objectName, "error", err)
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// SaveWithRetry retries SaveToGCSAtomically with exponential backoff. The
// write is conditional, so a retry after a partial success is a no-op.
func SaveWithRetry(ctx context.Context, bucket *storage.BucketHandle, objectName string, content []byte, maxRetries int, backoff time.Duration) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
		err := SaveToGCSAtomically(writeCtx, bucket, objectName, bytes.NewReader(content))
		cancel()
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", objectName,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", objectName, "error", ctx.Err())
			return ctx.Err()
		}
	}
	return fmt.Errorf("upload for %s failed after all retries: %w", objectName, lastErr)
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// StreamObjectToFile copies a GCS object to destPath and returns its size.
func StreamObjectToFile(ctx context.Context, client *storage.Client, bucket, object, destPath string) (int64, error) {
	gcsReader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer gcsReader.Close()
	localFile, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file at %s: %w", destPath, err)
	}
	defer localFile.Close()
	n, err := io.Copy(localFile, gcsReader)
	if err != nil {
		return 0, fmt.Errorf("failed to copy GCS object to local file: %w", err)
	}
	return n, nil
}

// ObjectURI formats a gs:// URI.
func ObjectURI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}
