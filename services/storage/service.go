package storage

import (
	"bytes"
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"

	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
	"github.com/bosatsu/aws-twilio-fax/services/storage/aws_client"
)

// ObjectStorageService implements ObjectStorage using S3Client
type ObjectStorageService struct {
	client aws_client.S3Client
}

// NewStorageService creates a new object storage service
func NewStorageService(client aws_client.S3Client) interfaces.ObjectStorage {
	return &ObjectStorageService{
		client: client,
	}
}

func (s *ObjectStorageService) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.GetObject")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagBucketObject(span, bucket, key)

	return s.client.Download(ctx, bucket, key)
}

func (s *ObjectStorageService) GetObjectMetadata(ctx context.Context, bucket, key string) (map[string]string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.GetObjectMetadata")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagBucketObject(span, bucket, key)

	return s.client.HeadMetadata(ctx, bucket, key)
}

// PutObject stores data with its metadata. Writing the same key twice is an
// overwrite, which keeps redelivered trigger events idempotent.
func (s *ObjectStorageService) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string, metadata map[string]string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.PutObject")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagBucketObject(span, bucket, key)

	uploadInput := s3manager.UploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		ACL:         aws.String("private"),
	}

	if len(metadata) > 0 {
		uploadInput.Metadata = make(map[string]*string, len(metadata))
		for k, v := range metadata {
			uploadInput.Metadata[k] = aws.String(v)
		}
	}

	return s.client.Upload(ctx, uploadInput)
}

func (s *ObjectStorageService) PresignedGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.PresignedGetURL")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagBucketObject(span, bucket, key)

	return s.client.PresignGet(ctx, bucket, key, ttl)
}

func (s *ObjectStorageService) PresignedUploadPost(ctx context.Context, bucket, key string, fields map[string]string, ttl time.Duration) (*interfaces.PresignedPost, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.PresignedUploadPost")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagBucketObject(span, bucket, key)

	return s.client.PresignPost(ctx, bucket, key, fields, ttl)
}
