package interfaces

import (
	"context"
	"time"
)

// PresignedPost is a time-limited browser-upload grant for one object.
type PresignedPost struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

type ObjectStorage interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	GetObjectMetadata(ctx context.Context, bucket, key string) (map[string]string, error)
	PutObject(ctx context.Context, bucket, key string, body []byte, contentType string, metadata map[string]string) error
	PresignedGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	PresignedUploadPost(ctx context.Context, bucket, key string, fields map[string]string, ttl time.Duration) (*PresignedPost, error)
}
