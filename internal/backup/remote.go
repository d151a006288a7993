package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrRemoteNotConfigured = errors.New("backup not configured: S3 credentials missing")

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Remote stores encrypted snapshots in an S3-compatible bucket.
type Remote struct {
	client s3Client
	bucket string
	prefix string
}

// NewRemote returns ErrRemoteNotConfigured when cfg lacks a bucket or
// credentials.
func NewRemote(cfg S3Config) (*Remote, error) {
	if !cfg.Enabled() {
		return nil, ErrRemoteNotConfigured
	}
	return &Remote{client: newS3Client(cfg), bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// ObjectKey names a snapshot taken at t.
func (r *Remote) ObjectKey(t time.Time) string {
	return fmt.Sprintf("%ssnapshot-%s.json.enc", r.prefix, t.UTC().Format("2006-01-02T150405Z"))
}

// Upload seals the snapshot and stores it under ObjectKey(snap.GeneratedAt).
func (r *Remote) Upload(ctx context.Context, snap Snapshot, passphrase string) (string, error) {
	sealed, err := Seal(snap, passphrase)
	if err != nil {
		return "", err
	}
	key := r.ObjectKey(snap.GeneratedAt)
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}
	return key, nil
}

func (r *Remote) Download(ctx context.Context, key, passphrase string) (Snapshot, error) {
	result, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read s3 object: %w", err)
	}
	return Open(data, passphrase)
}

func (r *Remote) Delete(ctx context.Context, key string) error {
	if _, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete from s3: %w", err)
	}
	return nil
}
