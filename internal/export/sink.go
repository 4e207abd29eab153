package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader is the subset of manager.Uploader used by the S3 sink.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Sinks opens output destinations. A destination is either a local path
// or an s3://bucket/key URL.
type Sinks struct {
	// NewUploader builds the S3 uploader on first use. Nil means the
	// default AWS credential chain.
	NewUploader func(ctx context.Context) (Uploader, error)
}

// Open returns a writer for dest. The caller must Close it; for S3 the
// upload result is reported by Close.
func (s Sinks) Open(ctx context.Context, dest string) (io.WriteCloser, error) {
	if !strings.HasPrefix(dest, "s3://") {
		return openFile(dest)
	}
	bucket, key, err := ParseS3URL(dest)
	if err != nil {
		return nil, err
	}
	newUploader := s.NewUploader
	if newUploader == nil {
		newUploader = defaultUploader
	}
	up, err := newUploader(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3 uploader: %w", err)
	}
	return newS3Writer(ctx, up, bucket, key), nil
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse %q: %w", raw, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("%q: scheme %q is not s3", raw, u.Scheme)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("%q: want s3://bucket/key", raw)
	}
	return u.Host, key, nil
}

func defaultUploader(ctx context.Context) (Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return manager.NewUploader(s3.NewFromConfig(cfg)), nil
}

func openFile(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	return os.Create(path)
}

// s3Writer streams bytes into a running multipart upload through a pipe.
type s3Writer struct {
	pw   *io.PipeWriter
	done chan error
}

func newS3Writer(ctx context.Context, up Uploader, bucket, key string) *s3Writer {
	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := up.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        pr,
			ContentType: aws.String("application/octet-stream"),
		})
		// Unblock a writer stuck on a failed upload.
		pr.CloseWithError(err)
		w.done <- err
	}()
	return w
}

func (w *s3Writer) Write(p []byte) (int, error) {
	n, err := w.pw.Write(p)
	if errors.Is(err, io.ErrClosedPipe) {
		err = fmt.Errorf("s3 upload aborted: %w", err)
	}
	return n, err
}

func (w *s3Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	if err := <-w.done; err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	return nil
}
