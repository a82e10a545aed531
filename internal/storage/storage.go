package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrDisabled is returned when no bucket or credentials are configured.
var ErrDisabled = errors.New("object storage not configured")

// ObjectPathPrefix is where objects are served when no public base URL is set.
const ObjectPathPrefix = "/api/objects/"

const presignTTL = 15 * time.Minute

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type presigner interface {
	PresignGetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config holds S3-compatible storage configuration.
type Config struct {
	Endpoint      string
	Bucket        string
	Region        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// Enabled reports whether enough is configured to talk to a bucket.
func (c Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Object identifies a stored file.
type Object struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Service uploads and removes the images attached to content records.
type Service struct {
	cfg     Config
	client  s3Client
	presign presigner
	logger  *slog.Logger
}

// NewService creates a storage service. A service without bucket or
// credentials is returned disabled; every call then yields ErrDisabled.
func NewService(cfg Config, logger *slog.Logger) *Service {
	s := &Service{cfg: cfg, logger: logger.With("component", "storage")}
	if cfg.Enabled() {
		client := newS3Client(cfg)
		s.client = client
		s.presign = s3.NewPresignClient(client)
	}
	return s
}

func newS3Client(cfg Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (s *Service) Enabled() bool {
	return s.client != nil
}

// Upload stores body under folder with a random name that keeps the
// extension of filename.
func (s *Service) Upload(ctx context.Context, folder, filename string, body io.Reader, size int64, contentType string) (Object, error) {
	if !s.Enabled() {
		return Object{}, ErrDisabled
	}

	key := objectKey(folder, filename)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return Object{}, fmt.Errorf("put object %s: %w", key, err)
	}
	s.logger.Debug("object uploaded", "key", key, "size", size)

	return Object{Key: key, URL: s.URL(key)}, nil
}

// URL is the stable address stored on records. Without a public base URL
// it points at the API, which redirects to a presigned link.
func (s *Service) URL(key string) string {
	if base := strings.TrimRight(s.cfg.PublicBaseURL, "/"); base != "" {
		return base + "/" + key
	}
	return ObjectPathPrefix + key
}

// DownloadURL returns a URL a client can fetch key from right now.
func (s *Service) DownloadURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	if s.cfg.PublicBaseURL != "" {
		return s.URL(key), nil
	}
	if !s.Enabled() {
		return "", ErrDisabled
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// Delete removes key. Deleting an empty key is a no-op.
func (s *Service) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if !s.Enabled() {
		return ErrDisabled
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	s.logger.Debug("object deleted", "key", key)
	return nil
}

func objectKey(folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return uuid.NewString() + ext
	}
	return folder + "/" + uuid.NewString() + ext
}
