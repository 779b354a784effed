package aws_client

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
)

type S3Client interface {
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	HeadMetadata(ctx context.Context, bucket, key string) (map[string]string, error)
	Upload(ctx context.Context, uploadContainer s3manager.UploadInput) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	PresignPost(ctx context.Context, bucket, key string, fields map[string]string, ttl time.Duration) (*interfaces.PresignedPost, error)
}

type s3Client struct {
	Uploader   *s3manager.Uploader
	Downloader *s3manager.Downloader
	Config     *aws.Config
	Session    *session.Session
}

func NewS3Client(config *aws.Config) S3Client {
	s := session.Must(session.NewSession(config))
	return &s3Client{
		Uploader:   s3manager.NewUploader(s),
		Downloader: s3manager.NewDownloader(s),
		Config:     config,
		Session:    s,
	}
}

func (s *s3Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "s3Client.Download")
	defer span.Finish()
	tracing.TagBucketObject(span, bucket, key)

	buffer := &aws.WriteAtBuffer{}
	_, err := s.Downloader.DownloadWithContext(ctx, buffer,
		&s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
	if err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}

func (s *s3Client) HeadMetadata(ctx context.Context, bucket, key string) (map[string]string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "s3Client.HeadMetadata")
	defer span.Finish()
	tracing.TagBucketObject(span, bucket, key)

	svc := s3.New(s.Session)
	out, err := svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}

	// The SDK title-cases metadata keys; downstream contracts use lowercase.
	metadata := make(map[string]string, len(out.Metadata))
	for k, v := range out.Metadata {
		if v != nil {
			metadata[strings.ToLower(k)] = *v
		}
	}
	return metadata, nil
}

func (s *s3Client) Upload(ctx context.Context, uploadContainer s3manager.UploadInput) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "s3Client.Upload")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	_, err := s.Uploader.UploadWithContext(ctx, &uploadContainer)
	return err
}

func (s *s3Client) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "s3Client.PresignGet")
	defer span.Finish()
	tracing.TagBucketObject(span, bucket, key)

	svc := s3.New(s.Session)
	req, _ := svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return req.Presign(ttl)
}

// PresignPost builds a browser-upload POST policy. The v1 SDK has no helper
// for this, so the SigV4 policy signing is done here.
func (s *s3Client) PresignPost(ctx context.Context, bucket, key string, fields map[string]string, ttl time.Duration) (*interfaces.PresignedPost, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "s3Client.PresignPost")
	defer span.Finish()
	tracing.TagBucketObject(span, bucket, key)

	creds, err := s.Session.Config.Credentials.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve AWS credentials")
	}
	region := aws.StringValue(s.Config.Region)

	now := time.Now().UTC()
	amzDate := now.Format("20060102T150405Z")
	shortDate := now.Format("20060102")
	credential := fmt.Sprintf("%s/%s/%s/s3/aws4_request", creds.AccessKeyID, shortDate, region)

	postFields := map[string]string{
		"key":              key,
		"x-amz-algorithm":  "AWS4-HMAC-SHA256",
		"x-amz-credential": credential,
		"x-amz-date":       amzDate,
	}
	if creds.SessionToken != "" {
		postFields["x-amz-security-token"] = creds.SessionToken
	}
	for k, v := range fields {
		postFields[k] = v
	}

	conditions := make([]interface{}, 0, len(postFields)+1)
	conditions = append(conditions, map[string]string{"bucket": bucket})
	for k, v := range postFields {
		conditions = append(conditions, map[string]string{k: v})
	}

	policy := map[string]interface{}{
		"expiration": now.Add(ttl).Format("2006-01-02T15:04:05.000Z"),
		"conditions": conditions,
	}
	policyJSON, err := json.Marshal(policy)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal POST policy")
	}
	policyB64 := base64.StdEncoding.EncodeToString(policyJSON)

	signingKey := hmacSHA256([]byte("AWS4"+creds.SecretAccessKey), shortDate)
	signingKey = hmacSHA256(signingKey, region)
	signingKey = hmacSHA256(signingKey, "s3")
	signingKey = hmacSHA256(signingKey, "aws4_request")

	postFields["policy"] = policyB64
	postFields["x-amz-signature"] = hex.EncodeToString(hmacSHA256(signingKey, policyB64))

	return &interfaces.PresignedPost{
		URL:    fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region),
		Fields: postFields,
	}, nil
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}
