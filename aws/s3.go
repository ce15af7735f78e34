package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// SignUpload returns a time-limited URL granting a single PUT of the
// object under key.
func (c *S3Client) SignUpload(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	out, err := c.Presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      c.Bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload, %w", err)
	}

	return out.URL, nil
}

// SignDownload returns a time-limited URL granting a single GET of
// the object under key.
func (c *S3Client) SignDownload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	out, err := c.Presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: c.Bucket,
		Key:    &key,
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign download, %w", err)
	}

	return out.URL, nil
}
