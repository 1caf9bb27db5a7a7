package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"spt3g-viewer/internal/domain"
)

// Compile-time checks.
var (
	_ domain.FileSource = LocalSource{}
	_ domain.FileSource = (*S3Source)(nil)
)

// LocalSource reads catalog files from a directory.
type LocalSource struct {
	Dir string
}

// Open opens name inside the source directory.
func (s LocalSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(name)) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("open catalog file %q: %w", name, err)
	}
	return f, nil
}

// Path returns the filesystem path of name. DuckDB reads local files in
// place instead of going through a copy.
func (s LocalSource) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// S3Options configures an S3Source.
type S3Options struct {
	Endpoint string // host[:port], https is assumed
	Region   string
	KeyID    string
	Secret   string
	Bucket   string
	Prefix   string
}

// S3Source reads catalog files from an S3-compatible bucket.
type S3Source struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Source creates an S3Source with path-style addressing.
func NewS3Source(opts S3Options) (*S3Source, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("S3 catalog source requires a bucket")
	}
	s3Opts := s3.Options{
		Region:       opts.Region,
		UsePathStyle: true,
	}
	if opts.KeyID != "" {
		s3Opts.Credentials = credentials.NewStaticCredentialsProvider(opts.KeyID, opts.Secret, "")
	}
	if opts.Endpoint != "" {
		s3Opts.BaseEndpoint = aws.String(fmt.Sprintf("https://%s", opts.Endpoint))
	}
	return &S3Source{
		client: s3.New(s3Opts),
		bucket: opts.Bucket,
		prefix: opts.Prefix,
	}, nil
}

// Open streams the object prefix/name.
func (s *S3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := path.Join(s.prefix, name)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, key, err)
	}
	return out.Body, nil
}
