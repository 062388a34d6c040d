package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"

	"cloakroom-backend/internal/config"
	"cloakroom-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// objectAPI is the subset of the S3 client R2Store uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// R2Store keeps uploads in a Cloudflare R2 (S3-compatible) bucket under the
// uploads/ key prefix.
type R2Store struct {
	client objectAPI
	bucket string
}

func NewR2Store(ctx context.Context, cfg *config.Config) (*R2Store, error) {
	r2 := cfg.Storage.R2
	if r2.Endpoint == "" || r2.Bucket == "" {
		return nil, errors.New("r2 storage requires endpoint and bucket")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			r2.AccessKey,
			r2.SecretKey,
			"",
		)),
		awsconfig.WithRegion(r2.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("configure r2 client: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(r2.Endpoint)
		o.UsePathStyle = true
	})

	return &R2Store{client: client, bucket: r2.Bucket}, nil
}

func objectKey(name string) string {
	return "uploads/" + name
}

func (s *R2Store) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	name := newObjectName(originalName)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(name)),
		Body:   r,
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("upload to r2: %w", err)
	}
	return PublicPrefix + name, nil
}

// Delete probes the object first: S3 deletes are idempotent and would not
// otherwise report a missing blob.
func (s *R2Store) Delete(ctx context.Context, p string) models.UnlinkOutcome {
	name := objectName(p)
	if name == "" {
		return models.UnlinkOutcome{Path: p, Success: false, Reason: ReasonNoPath}
	}

	exists, err := s.Exists(ctx, p)
	if err != nil {
		return models.UnlinkOutcome{Path: p, Success: false, Reason: err.Error()}
	}
	if !exists {
		return models.UnlinkOutcome{Path: p, Success: false, Reason: ReasonMissing}
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(name)),
	})
	if err != nil {
		return models.UnlinkOutcome{Path: p, Success: false, Reason: err.Error()}
	}
	return models.UnlinkOutcome{Path: p, Success: true}
}

func (s *R2Store) Exists(ctx context.Context, p string) (bool, error) {
	name := objectName(p)
	if name == "" {
		return false, nil
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(name)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("head object: %w", err)
	}
	return true, nil
}
