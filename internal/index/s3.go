package index

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the S3 client used for artifacts.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Artifacts keeps artifacts as objects under Bucket/Prefix.
type S3Artifacts struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Artifacts(client S3API, bucket, prefix string) *S3Artifacts {
	return &S3Artifacts{client: client, bucket: bucket, prefix: prefix}
}

// NewS3ArtifactsFromEnv loads AWS credentials from the default chain.
func NewS3ArtifactsFromEnv(ctx context.Context, region, bucket, prefix string) (*S3Artifacts, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3Artifacts(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func (s *S3Artifacts) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *S3Artifacts) Read(ctx context.Context, name string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound") {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.key(name), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object %s: %w", s.key(name), err)
	}
	return data, nil
}

// WritePair uploads the metadata first and the vectors last. When the vector
// upload fails the previous metadata object is uploaded again.
func (s *S3Artifacts) WritePair(ctx context.Context, vectors, metadata []byte) error {
	previous, err := s.Read(ctx, MetadataArtifact)
	hadPrevious := err == nil
	if err != nil && !errors.Is(err, ErrArtifactNotFound) {
		return err
	}

	if err := s.put(ctx, MetadataArtifact, metadata); err != nil {
		return err
	}
	if err := s.put(ctx, VectorArtifact, vectors); err != nil {
		if hadPrevious {
			if restoreErr := s.put(ctx, MetadataArtifact, previous); restoreErr != nil {
				return fmt.Errorf("%w (restoring %s: %v)", err, MetadataArtifact, restoreErr)
			}
		}
		return err
	}
	return nil
}

func (s *S3Artifacts) put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, s.key(name), err)
	}
	return nil
}
