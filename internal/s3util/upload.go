// Package s3util provides shared S3 helpers backing the upload service and
// output bundling: presigned URL issuance for direct browser/CLI uploads and
// durable download links.
package s3util

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// GeneratePresignedURL creates a pre-signed GET URL for an S3 object. This is
// the durable download URL handed back for a stored reference image or
// generated output.
func GeneratePresignedURL(ctx context.Context, presignClient *s3.PresignClient, bucket, key string, expiry time.Duration) (string, error) {
	result, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket, Key: &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}
	return result.URL, nil
}

// GeneratePresignedPutURL creates a pre-signed PUT URL for a direct browser or
// CLI upload. The caller must upload with the same content type the URL was
// signed for.
func GeneratePresignedPutURL(ctx context.Context, presignClient *s3.PresignClient, bucket, key, contentType string, expiry time.Duration) (string, error) {
	result, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &contentType,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign PutObject: %w", err)
	}
	return result.URL, nil
}
