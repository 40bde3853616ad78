package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"image-manager/internal/config"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type failureRecorder interface {
	BackupFailed()
}

// S3Backup copies stored files to a bucket in the background. Failures are
// logged and counted; callers never wait on or see them.
type S3Backup struct {
	client   objectPutter
	bucket   string
	prefix   string
	timeout  time.Duration
	failures failureRecorder
	wg       sync.WaitGroup
}

func NewS3Backup(ctx context.Context, cfg config.BackupConfig, failures failureRecorder) (*S3Backup, error) {
	options := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		options = append(options, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Backup(client, cfg, failures), nil
}

func newS3Backup(client objectPutter, cfg config.BackupConfig, failures failureRecorder) *S3Backup {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	return &S3Backup{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		timeout:  timeout,
		failures: failures,
	}
}

// Schedule starts copying localPath to the object named after relPath.
func (b *S3Backup) Schedule(localPath string, relPath string, contentType string) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		key := b.ObjectKey(relPath)
		if err := b.upload(localPath, key, contentType); err != nil {
			slog.Warn("backup copy failed", "bucket", b.bucket, "key", key, "error", err)
			if b.failures != nil {
				b.failures.BackupFailed()
			}
			return
		}
		slog.Debug("backup copy stored", "bucket", b.bucket, "key", key)
	}()
}

func (b *S3Backup) ObjectKey(relPath string) string {
	if b.prefix == "" {
		return relPath
	}
	return path.Join(b.prefix, relPath)
}

func (b *S3Backup) upload(localPath string, key string, contentType string) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer file.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   file,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	_, err = b.client.PutObject(ctx, input)
	return err
}

// Wait blocks until in-flight copies finish or ctx expires.
func (b *S3Backup) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
