package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appconfig "github.com/xxxsen/deephash/internal/config"
)

const (
	defaultRegion      = "us-east-1"
	defaultContentType = "application/octet-stream"
)

type s3Store struct {
	api *s3.Client
}

// NewS3Client builds a Client for AWS S3 or an S3 compatible endpoint.
func NewS3Client(ctx context.Context, cfg appconfig.S3Config) (Client, error) {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := normalizeEndpoint(cfg.Host)
	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	logutil.GetLogger(ctx).Debug("object store client ready",
		zap.String("endpoint", endpoint),
		zap.String("region", region),
		zap.Bool("path_style", cfg.ForcePathStyle),
	)
	return &s3Store{api: api}, nil
}

func (s *s3Store) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	logutil.GetLogger(ctx).Debug("object opened",
		zap.String("location", location),
		zap.Int64("size", aws.ToInt64(out.ContentLength)),
	)
	return out.Body, nil
}

func (s *s3Store) Put(ctx context.Context, location string, body io.Reader, size int64, contentType string) error {
	bucket, key, err := ParseLocation(location)
	if err != nil {
		return err
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentTypeFor(key, contentType)),
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := s.api.PutObject(ctx, in); err != nil {
		return fmt.Errorf("write %s: %w", location, err)
	}
	return nil
}

func contentTypeFor(key, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(key))); ct != "" {
		return ct
	}
	return defaultContentType
}

// normalizeEndpoint turns a bare host[:port] into an https URL.
func normalizeEndpoint(host string) string {
	host = strings.TrimSpace(host)
	if host == "" || strings.Contains(host, "://") {
		return host
	}
	return "https://" + host
}
