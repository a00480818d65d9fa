package s3util

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Presigner issues presigned PUT and GET URLs against a fixed bucket. It
// satisfies the api package's presigner interface so the HTTP handlers stay
// free of AWS SDK types.
type Presigner struct {
	client *s3.PresignClient
	bucket string
}

// NewPresigner creates a Presigner for the given bucket.
func NewPresigner(client *s3.PresignClient, bucket string) *Presigner {
	return &Presigner{client: client, bucket: bucket}
}

// PresignPut issues a presigned upload URL for the key.
func (p *Presigner) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	return GeneratePresignedPutURL(ctx, p.client, p.bucket, key, contentType, expiry)
}

// PresignGet issues a presigned download URL for the key.
func (p *Presigner) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return GeneratePresignedURL(ctx, p.client, p.bucket, key, expiry)
}
