// Package archive stores rendered exports in S3 or an S3-compatible
// object store such as MinIO.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/JonMunkholm/leadbook/internal/config"
	"github.com/JonMunkholm/leadbook/internal/logging"
)

// objectPutter is the part of *s3.Client the archiver uses.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes objects under an optional key prefix in one bucket.
type S3Archiver struct {
	client objectPutter
	bucket string
	prefix string
}

// New builds an S3Archiver from cfg. Static credentials are used when
// configured, otherwise the default AWS credential chain.
func New(ctx context.Context, cfg config.ArchiveConfig) (*S3Archiver, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("archive: no bucket configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func newWithClient(client objectPutter, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix}
}

// Put uploads body under key and returns its s3:// location. The body is
// buffered so the request carries a content length.
func (a *S3Archiver) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("archive: read body: %w", err)
	}

	fullKey := key
	if a.prefix != "" {
		fullKey = path.Join(a.prefix, key)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(fullKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("archive: put s3://%s/%s: %w", a.bucket, fullKey, err)
	}

	location := fmt.Sprintf("s3://%s/%s", a.bucket, fullKey)
	logging.FromContext(ctx).Debug("object archived", "location", location, "bytes", len(data))
	return location, nil
}
