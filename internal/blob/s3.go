// Package blob implements the FileStore collaborator over S3-compatible
// object storage, plus an in-memory store for tests and development.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"datashelf/internal/domain"
)

var _ domain.FileStore = (*S3Store)(nil)

// S3Store implements domain.FileStore against an S3-compatible endpoint.
// Path-style addressing is used so non-AWS endpoints (MinIO, Hetzner)
// work without DNS bucket tricks.
type S3Store struct {
	client *s3.Client
	bucket string
}

// S3Config holds the connection parameters for an S3Store.
type S3Config struct {
	KeyID    string
	Secret   string
	Endpoint string // host, scheme added automatically
	Region   string
	Bucket   string
}

// NewS3Store creates an S3Store.
func NewS3Store(cfg S3Config) *S3Store {
	client := s3.New(s3.Options{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.KeyID, cfg.Secret, "",
		),
		BaseEndpoint: aws.String(fmt.Sprintf("https://%s", cfg.Endpoint)),
		UsePathStyle: true,
	})
	return &S3Store{client: client, bucket: cfg.Bucket}
}

// Get returns the object bytes for key.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapS3Error(err, key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, domain.ErrStoreUnavailable(err, "read object %s", key)
	}
	return data, nil
}

// Put stores the object bytes under key.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return mapS3Error(err, key)
	}
	return nil
}

// Delete removes the object under key. Deleting an absent key succeeds,
// matching S3 semantics; the cascade coordinator relies on this for
// retryability.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return mapS3Error(err, key)
	}
	return nil
}

// Metadata returns size, content type, and last modified time for key.
func (s *S3Store) Metadata(ctx context.Context, key string) (*domain.BlobMetadata, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapS3Error(err, key)
	}
	meta := &domain.BlobMetadata{
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}
	if out.LastModified != nil {
		meta.LastModified = *out.LastModified
	}
	return meta, nil
}

// mapS3Error translates SDK errors into the domain taxonomy: missing keys
// become NotFoundError, everything else StoreUnavailableError.
func mapS3Error(err error, key string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return domain.ErrNotFound("object %s not found", key)
		}
	}
	return domain.ErrStoreUnavailable(err, "blob store: %s", key)
}
