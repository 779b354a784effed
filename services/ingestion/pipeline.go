package ingestion

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/bosatsu/aws-twilio-fax/dto"
	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/enum"
	"github.com/bosatsu/aws-twilio-fax/internal/logger"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
	"github.com/bosatsu/aws-twilio-fax/services/events"
	"github.com/bosatsu/aws-twilio-fax/services/faxjob"
	"github.com/bosatsu/aws-twilio-fax/services/mailparse"
	"github.com/bosatsu/aws-twilio-fax/services/notify"
)

const pdfContentType = "application/pdf"

// Pipeline turns one inbound email into a stored fax job, or into exactly
// one notification explaining why not. All collaborator errors are folded
// into a terminal outcome; Process never panics and never leaks an
// exception to the trigger infrastructure.
type Pipeline struct {
	storage       interfaces.ObjectStorage
	allowList     interfaces.AllowList
	notifier      *notify.Notifier
	publisher     interfaces.EventPublisher
	log           logger.Logger
	sendFaxBucket string
}

func NewPipeline(
	storage interfaces.ObjectStorage,
	allowList interfaces.AllowList,
	notifier *notify.Notifier,
	publisher interfaces.EventPublisher,
	log logger.Logger,
	sendFaxBucket string,
) *Pipeline {
	return &Pipeline{
		storage:       storage,
		allowList:     allowList,
		notifier:      notifier,
		publisher:     publisher,
		log:           log,
		sendFaxBucket: sendFaxBucket,
	}
}

// Process runs the full ingestion sequence for the raw message stored at
// bucket/key. The returned error is non-nil only for infrastructure
// failures where redelivery is meaningful; policy outcomes (Rejected,
// NoAttachment) are handled terminally here.
func (p *Pipeline) Process(ctx context.Context, bucket, key string) (enum.IngestionOutcome, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Pipeline.Process")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagBucketObject(span, bucket, key)

	raw, err := p.storage.GetObject(ctx, bucket, key)
	if err != nil {
		tracing.TraceErr(span, err)
		return enum.IngestionStoreFailed, errors.Wrapf(err, "failed to fetch inbound message %s/%s", bucket, key)
	}

	msg, err := mailparse.Parse(raw)
	if err != nil {
		// A message we cannot parse has no usable sender to notify.
		tracing.TraceErr(span, err)
		p.log.Warnf("Discarding malformed message %s/%s: %v", bucket, key, err)
		return enum.IngestionNoAttachment, nil
	}

	span.LogKV("from", msg.FromEmail, "subject", msg.Subject)

	fromPhone, err := p.allowList.PhoneByEmail(msg.FromEmail)
	if err != nil {
		p.log.Warnf("Received email from unapproved sender: %s", msg.FromEmail)
		p.notifier.NotifyUnauthorizedSender(ctx, msg.FromEmail, bucket, key)
		return enum.IngestionRejected, nil
	}

	// The destination phone travels in the subject line by convention.
	toPhone := msg.Subject
	if toPhone == "" {
		p.log.Warnf("Email from %s has no destination number in subject", msg.FromEmail)
		p.notifier.NotifyUnauthorizedSender(ctx, msg.FromEmail, bucket, key)
		return enum.IngestionRejected, nil
	}

	part, err := mailparse.FindAttachment(msg, pdfContentType)
	if err != nil {
		p.log.Warnf("Received email from %s with no PDF, notifying sender", msg.FromEmail)
		p.notifier.NotifyNoAttachment(ctx, msg.FromEmail)
		return enum.IngestionNoAttachment, nil
	}

	// Messages without a Date header fall back to receipt time.
	sentAt := msg.Date
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}
	date := faxjob.FormatDate(sentAt)
	timeOfDay := faxjob.FormatTime(sentAt)
	storageKey := faxjob.BuildStorageKey(msg.FromEmail, date, timeOfDay)

	metadata, err := faxjob.BuildMetadata(msg.FromEmail, fromPhone, toPhone, date, timeOfDay, part.Filename)
	if err != nil {
		tracing.TraceErr(span, err)
		p.log.Errorf("Cannot build metadata for message from %s: %v", msg.FromEmail, err)
		p.notifier.NotifyStoreFailure(ctx, storageKey, err)
		return enum.IngestionStoreFailed, nil
	}

	p.log.Infof("Creating fax job %s", storageKey)
	err = p.storage.PutObject(ctx, p.sendFaxBucket, storageKey, part.Payload, pdfContentType, metadata)
	if err != nil {
		tracing.TraceErr(span, err)
		p.log.Errorf("Failed to store fax job %s: %v", storageKey, err)
		p.notifier.NotifyStoreFailure(ctx, storageKey, err)
		return enum.IngestionStoreFailed, errors.Wrapf(err, "failed to store fax job %s", storageKey)
	}

	p.log.Infof("Successfully saved fax job to %s bucket", p.sendFaxBucket)

	err = p.publisher.PublishEvent(ctx, storageKey, dto.FaxJobStored{
		Bucket: p.sendFaxBucket,
		Key:    storageKey,
	}, events.RoutingKeyFaxJobStored)
	if err != nil {
		// The job is stored; dispatch can be replayed by republishing.
		tracing.TraceErr(span, err)
		p.log.Errorf("Fax job %s stored but event publish failed: %v", storageKey, err)
	}

	return enum.IngestionStored, nil
}
