package ses

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	awsses "github.com/aws/aws-sdk-go/service/ses"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/bosatsu/aws-twilio-fax/config"
	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
)

const charset = "utf-8"

type emailSenderService struct {
	client *awsses.SES
}

func NewEmailSenderService(cfg *config.AWSConfig) interfaces.EmailSender {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	s := session.Must(session.NewSession(awsConfig))

	return &emailSenderService{
		client: awsses.New(s),
	}
}

func (s *emailSenderService) SendEmail(ctx context.Context, msg interfaces.EmailMessage) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailSenderService.SendEmail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("to", msg.To, "subject", msg.Subject)

	if msg.To == "" || msg.From == "" {
		err := errors.New("email message requires both sender and recipient")
		tracing.TraceErr(span, err)
		return "", err
	}

	out, err := s.client.SendEmailWithContext(ctx, &awsses.SendEmailInput{
		Destination: &awsses.Destination{
			ToAddresses: []*string{aws.String(msg.To)},
		},
		Message: &awsses.Message{
			Body: &awsses.Body{
				Html: &awsses.Content{
					Charset: aws.String(charset),
					Data:    aws.String(msg.BodyHTML),
				},
				Text: &awsses.Content{
					Charset: aws.String(charset),
					Data:    aws.String(msg.BodyText),
				},
			},
			Subject: &awsses.Content{
				Charset: aws.String(charset),
				Data:    aws.String(msg.Subject),
			},
		},
		Source: aws.String(msg.From),
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrap(err, "failed to send email")
	}

	return aws.StringValue(out.MessageId), nil
}
