package blob

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"
)

// S3Config holds connection settings for an S3-compatible endpoint
// (AWS or MinIO via BaseEndpoint).
type S3Config struct {
	Region       string
	Bucket       string
	BaseEndpoint string // empty for real AWS
	AccessKey    string
	SecretKey    string
}

// S3Store keeps ciphertext blobs in an S3 bucket. Every call is bounded by
// a per-attempt timeout and retried with fibonacci backoff; an exhausted
// retry surfaces to the caller as a transient error.
type S3Store struct {
	client  *s3.Client
	bucket  string
	timeout time.Duration
	retries uint64
}

// NewS3Store builds a store for the given endpoint.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		timeout: 10 * time.Second,
		retries: 3,
	}, nil
}

func (s *S3Store) do(ctx context.Context, op func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(s.retries, retry.NewFibonacci(200*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		if err := op(attemptCtx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// Put uploads data under ref.
func (s *S3Store) Put(ctx context.Context, ref string, data []byte) error {
	return s.do(ctx, func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(ref),
			Body:   bytes.NewReader(data),
		})
		return err
	})
}

// Get downloads the blob stored under ref.
func (s *S3Store) Get(ctx context.Context, ref string) ([]byte, error) {
	var data []byte
	err := s.do(ctx, func(ctx context.Context) error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(ref),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()
		data, err = io.ReadAll(out.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Delete removes the blob stored under ref.
func (s *S3Store) Delete(ctx context.Context, ref string) error {
	return s.do(ctx, func(ctx context.Context) error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(ref),
		})
		return err
	})
}
