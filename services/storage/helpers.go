package storage

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"

	"github.com/bosatsu/aws-twilio-fax/config"
	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/services/storage/aws_client"
)

// NewS3StorageService creates an ObjectStorage configured for AWS S3.
// When no static keys are configured the SDK's default credential chain
// (instance profile, env) applies.
func NewS3StorageService(cfg *config.AWSConfig) interfaces.ObjectStorage {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	return NewStorageService(aws_client.NewS3Client(awsConfig))
}
