// Where: cli/internal/artifact/uploader.go
// What: Object-store interface and AWS S3 adapter.
// Why: Map the upload path onto the SDK without leaking it upward.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// ErrBucketMissing signals that the target bucket does not exist yet.
// Callers may provision the bucket and retry; it is not a hard fault.
var ErrBucketMissing = errors.New("bucket does not exist")

// ObjectStore is the minimal object-storage surface the locator needs.
type ObjectStore interface {
	HeadBucket(ctx context.Context, bucket string) error
	CreateBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, body []byte) error
}

// AWSObjectStore adapts the S3 client to the ObjectStore interface.
type AWSObjectStore struct {
	Client *s3.Client
}

func (s AWSObjectStore) HeadBucket(ctx context.Context, bucket string) error {
	if s.Client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	_, err := s.Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		if isBucketMissing(err) {
			return fmt.Errorf("bucket %s: %w", bucket, ErrBucketMissing)
		}
		return fmt.Errorf("head bucket %s: %w", bucket, err)
	}
	return nil
}

func (s AWSObjectStore) CreateBucket(ctx context.Context, bucket string) error {
	if s.Client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	_, err := s.Client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}

func (s AWSObjectStore) PutObject(ctx context.Context, bucket, key string, body []byte) error {
	if s.Client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("put object s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func isBucketMissing(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}
