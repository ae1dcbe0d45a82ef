// Package publish uploads an archived deck to an S3-compatible bucket.
package publish

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dd0wney/wrfhydro-prep/pkg/config"
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
	"github.com/dd0wney/wrfhydro-prep/pkg/logging"
)

// Uploader is the part of the S3 client the publisher needs.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewClient builds an S3 client from the publish settings. Static keys are
// used when both are set; otherwise the default AWS credential chain applies.
// A custom endpoint switches to path-style addressing for MinIO and similar.
func NewClient(ctx context.Context, cfg config.Publish) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, hydroerr.Config("publish.NewClient", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Publisher copies files under <prefix>/<run id>/ in one bucket.
type Publisher struct {
	client Uploader
	bucket string
	prefix string
	logger logging.Logger
}

// New returns a Publisher for cfg.Bucket.
func New(client Uploader, cfg config.Publish, logger logging.Logger) *Publisher {
	return &Publisher{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, logger: logger}
}

// Key is the object key a file is stored under.
func (p *Publisher) Key(runID, file string) string {
	return path.Join(p.prefix, runID, filepath.Base(file))
}

// Publish uploads files in order and returns their keys. It stops at the
// first failure.
func (p *Publisher) Publish(ctx context.Context, runID string, files ...string) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return keys, err
		}
		key := p.Key(runID, file)
		if err := p.put(ctx, key, file); err != nil {
			return keys, err
		}
		p.logger.Info("deck file published",
			logging.Path(file),
			logging.String("bucket", p.bucket),
			logging.String("key", key))
		keys = append(keys, key)
	}
	return keys, nil
}

func (p *Publisher) put(ctx context.Context, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return hydroerr.IO("publish.Publish", file, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return hydroerr.IO("publish.Publish", file, err)
	}
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(file)),
	})
	if err != nil {
		return hydroerr.IO("publish.Publish", file, fmt.Errorf("s3://%s/%s: %w", p.bucket, key, err))
	}
	return nil
}

func contentType(file string) string {
	switch filepath.Ext(file) {
	case ".zip":
		return "application/zip"
	case ".yaml":
		return "application/yaml"
	case ".nc":
		return "application/x-netcdf"
	default:
		return "application/octet-stream"
	}
}
