package objectstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"

	"github.com/tyler180/allstar-rosters/internal/frame"
)

// S3API is the subset of the S3 client the store needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Store reads and writes blobs under Prefix in Bucket.
type Store struct {
	Client S3API
	Bucket string
	Prefix string
}

func New(cl S3API, bucket, prefix string) *Store {
	return &Store{Client: cl, Bucket: bucket, Prefix: prefix}
}

// Key joins parts below the store prefix.
func (s *Store) Key(parts ...string) string {
	return path.Join(append([]string{s.Prefix}, parts...)...)
}

// Put uploads body to key as-is; key is not prefixed.
func (s *Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.Client.PutObject(ctx, in); err != nil {
		return errors.Wrapf(err, "put s3://%s/%s", s.Bucket, key)
	}
	return nil
}

// PutFile uploads a local file.
func (s *Store) PutFile(ctx context.Context, key, file, contentType string) error {
	b, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrapf(err, "read %s", file)
	}
	return s.Put(ctx, key, b, contentType)
}

// PutCSV uploads f rendered as CSV.
func (s *Store) PutCSV(ctx context.Context, key string, f *frame.Frame) error {
	var buf bytes.Buffer
	if err := f.WriteCSV(&buf); err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return s.Put(ctx, key, buf.Bytes(), "text/csv")
}

// Get downloads key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get s3://%s/%s", s.Bucket, key)
	}
	defer out.Body.Close()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read s3://%s/%s", s.Bucket, key)
	}
	return b, nil
}

// GetFile downloads key into a local file.
func (s *Store) GetFile(ctx context.Context, key, file string) error {
	b, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(file, b, 0o644), "write %s", file)
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	return false, errors.Wrapf(err, "head s3://%s/%s", s.Bucket, key)
}
