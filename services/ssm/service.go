package ssm

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	awsssm "github.com/aws/aws-sdk-go/service/ssm"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/bosatsu/aws-twilio-fax/config"
	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
)

type parameterStoreService struct {
	client *awsssm.SSM
}

func NewParameterStoreService(cfg *config.AWSConfig) interfaces.ParameterStore {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	s := session.Must(session.NewSession(awsConfig))

	return &parameterStoreService{
		client: awsssm.New(s),
	}
}

func (s *parameterStoreService) GetParameter(ctx context.Context, name string, decrypt bool) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ParameterStoreService.GetParameter")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("name", name)

	out, err := s.client.GetParameterWithContext(ctx, &awsssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(decrypt),
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrapf(err, "failed to get parameter %s", name)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		err := errors.Errorf("parameter %s has no value", name)
		tracing.TraceErr(span, err)
		return "", err
	}

	return *out.Parameter.Value, nil
}

func (s *parameterStoreService) PutParameter(ctx context.Context, name, value string, secure bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ParameterStoreService.PutParameter")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("name", name)

	paramType := awsssm.ParameterTypeString
	if secure {
		paramType = awsssm.ParameterTypeSecureString
	}

	_, err := s.client.PutParameterWithContext(ctx, &awsssm.PutParameterInput{
		Name:      aws.String(name),
		Value:     aws.String(value),
		Type:      aws.String(paramType),
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to put parameter %s", name)
	}
	return nil
}

func (s *parameterStoreService) DeleteParameter(ctx context.Context, name string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ParameterStoreService.DeleteParameter")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("name", name)

	_, err := s.client.DeleteParameterWithContext(ctx, &awsssm.DeleteParameterInput{
		Name: aws.String(name),
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to delete parameter %s", name)
	}
	return nil
}
