package uploadlink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/bosatsu/aws-twilio-fax/config"
	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/logger"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
	"github.com/bosatsu/aws-twilio-fax/internal/utils"
	"github.com/bosatsu/aws-twilio-fax/services/faxjob"
)

const (
	pdfContentType = "application/pdf"
	linkTTL        = time.Hour
)

// Service hands approved senders a direct browser-upload grant for a fax
// job, bypassing the email leg. The uploaded object carries the same
// metadata contract as an ingested email, so dispatch treats both alike.
type Service struct {
	storage     interfaces.ObjectStorage
	allowList   interfaces.AllowList
	sender      interfaces.EmailSender
	log         logger.Logger
	bucket      string
	sourceEmail string

	now func() time.Time
}

func NewService(storage interfaces.ObjectStorage, allowList interfaces.AllowList, sender interfaces.EmailSender, log logger.Logger, bucketCfg *config.BucketConfig, sourceEmail string) *Service {
	return &Service{
		storage:     storage,
		allowList:   allowList,
		sender:      sender,
		log:         log,
		bucket:      bucketCfg.SendFaxBucket,
		sourceEmail: sourceEmail,
		now:         time.Now,
	}
}

// GenerateUploadLink validates the sender against the allow list and
// returns a presigned POST for a new fax job addressed to toPhone.
func (s *Service) GenerateUploadLink(ctx context.Context, senderEmail, toPhone string) (*interfaces.PresignedPost, string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "UploadLinkService.GenerateUploadLink")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	senderEmail = utils.NormalizeEmail(senderEmail)
	span.LogKV("senderEmail", senderEmail)

	fromPhone, err := s.allowList.PhoneByEmail(senderEmail)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, "", err
	}

	now := s.now()
	date := faxjob.FormatDate(now)
	timeOfDay := faxjob.FormatTime(now)
	key := faxjob.BuildStorageKey(senderEmail, date, timeOfDay)

	metadata, err := faxjob.BuildMetadata(senderEmail, fromPhone, toPhone, date, timeOfDay, key)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, "", errors.Wrapf(err, "cannot build upload metadata for %s", senderEmail)
	}

	fields := map[string]string{"Content-Type": pdfContentType}
	for k, v := range metadata {
		fields["x-amz-meta-"+k] = v
	}

	post, err := s.storage.PresignedUploadPost(ctx, s.bucket, key, fields, linkTTL)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, "", errors.Wrapf(err, "failed to presign upload for %s", key)
	}

	s.emailLink(ctx, senderEmail, toPhone, post)

	s.log.Infof("Issued upload link for %s, key %s", senderEmail, key)
	return post, key, nil
}

// emailLink mails the grant to the sender. Best-effort: the caller already
// holds the post in the API response.
func (s *Service) emailLink(ctx context.Context, senderEmail, toPhone string, post *interfaces.PresignedPost) {
	var fieldLines strings.Builder
	for k, v := range post.Fields {
		fieldLines.WriteString(fmt.Sprintf("  %s: %s\n", k, v))
	}

	subject := fmt.Sprintf("Upload link for fax to %s", toPhone)
	bodyText := fmt.Sprintf(
		"POST your PDF to %s within the next hour using these form fields:\n\n%s",
		post.URL, fieldLines.String(),
	)
	bodyHTML := fmt.Sprintf(
		"<p>POST your PDF to <a href=%q>%s</a> within the next hour using the form fields below.</p><pre>%s</pre>",
		post.URL, post.URL, fieldLines.String(),
	)

	_, err := s.sender.SendEmail(ctx, interfaces.EmailMessage{
		To:       senderEmail,
		From:     s.sourceEmail,
		Subject:  subject,
		BodyText: bodyText,
		BodyHTML: bodyHTML,
	})
	if err != nil {
		s.log.Errorf("Failed to email upload link to %s: %v", senderEmail, err)
	}
}
