package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
)

// Store keeps file blobs in one bucket of an S3 compatible backend (AWS S3
// or MinIO). Keys map to object keys directly.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

type Config struct {
	Region    string
	Bucket    string
	Prefix    string
	Endpoint  string // optional; custom endpoint such as MinIO
	PathStyle bool
}

// New builds a store from the default credentials chain
// (AWS_ACCESS_KEY_ID, shared config, instance roles).
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *Store) objectKey(key string) *string {
	return aws.String(s.prefix + key)
}

// Save buffers non seekable readers so the SDK can sign and retry the body.
func (s *Store) Save(ctx context.Context, key string, r io.Reader) error {
	body, ok := r.(io.ReadSeeker)
	if !ok {
		raw, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{Bucket: &s.bucket, Key: s.objectKey(key), Body: body})
	return err
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: s.objectKey(key)})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
		}
		return nil, err
	}
	return out.Body, nil
}

// Delete succeeds for missing keys; S3 does not report whether the object
// existed.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: s.objectKey(key)})
	return err
}
