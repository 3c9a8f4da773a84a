// Package archive periodically copies the attendance workbook to an
// S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/punchclock/internal/logging"
	"github.com/dmitrijs2005/punchclock/internal/models"
)

const contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
	Interval  time.Duration
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) putObjectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type Archiver struct {
	cfg    Config
	file   string
	client putObjectAPI
	logger logging.Logger
	now    func() time.Time
}

// New builds an archiver for file using an S3 client configured from cfg.
// Static credentials are used when an access key is set; otherwise the
// default AWS credential chain applies.
func New(ctx context.Context, cfg Config, file string, l logging.Logger) (*Archiver, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newArchiver(cfg, file, client, l), nil
}

func newArchiver(cfg Config, file string, client putObjectAPI, l logging.Logger) *Archiver {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Archiver{
		cfg:    cfg,
		file:   file,
		client: client,
		logger: l.With("module", "archive"),
		now:    time.Now,
	}
}

// Key returns the object key for a snapshot taken at t.
func (a *Archiver) Key(t time.Time) string {
	return path.Join(a.cfg.Prefix, t.Format(models.DateLayout), filepath.Base(a.file))
}

// Upload sends the current workbook and returns the object key.
func (a *Archiver) Upload(ctx context.Context) (string, error) {
	body, err := os.ReadFile(a.file)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", a.file, err)
	}

	key := a.Key(a.now())
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", a.cfg.Bucket, key, err)
	}
	return key, nil
}

// Run uploads a snapshot every interval and once more on shutdown.
// Failures are logged and retried at the next tick.
func (a *Archiver) Run(ctx context.Context) error {
	t := time.NewTicker(a.cfg.Interval)
	defer t.Stop()

	a.logger.Info(ctx, "Starting archiver", "bucket", a.cfg.Bucket, "interval", a.cfg.Interval.String())

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			a.upload(final)
			cancel()
			return nil
		case <-t.C:
			a.upload(ctx)
		}
	}
}

func (a *Archiver) upload(ctx context.Context) {
	key, err := a.Upload(ctx)
	if err != nil {
		a.logger.Error(ctx, "archive upload failed", "error", err)
		return
	}
	a.logger.Info(ctx, "workbook archived", "bucket", a.cfg.Bucket, "key", key)
}
