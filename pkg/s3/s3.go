package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// ModelStore serves model manifests and shards out of a bucket. Keys are
// the model file names joined onto an optional prefix.
type ModelStore struct {
	client     s3iface.S3API
	bucketName string
	prefix     string
}

func New(prefix string) (*ModelStore, error) {
	sess, err := newSession()
	if err != nil {
		return nil, err
	}

	bucket := os.Getenv("AWS_BUCKET_NAME")
	if bucket == "" {
		return nil, errors.New("AWS_BUCKET_NAME is not set")
	}

	return NewWithClient(s3.New(sess), bucket, prefix), nil
}

func NewWithClient(client s3iface.S3API, bucket, prefix string) *ModelStore {
	return &ModelStore{
		client:     client,
		bucketName: bucket,
		prefix:     strings.Trim(prefix, "/"),
	}
}

func (s *ModelStore) Key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *ModelStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.Key(name)),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		return nil, fmt.Errorf("failed to fetch s3://%s/%s: %w", s.bucketName, s.Key(name), err)
	}

	return out.Body, nil
}

func newSession() (*session.Session, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(os.Getenv("AWS_REGION")),
		Credentials: credentials.NewStaticCredentials(
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
			"",
		),
	})

	if err != nil {
		return nil, err
	}

	return sess, nil
}
