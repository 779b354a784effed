package listeners

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/bosatsu/aws-twilio-fax/dto"
	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/logger"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
	"github.com/bosatsu/aws-twilio-fax/services/events"
	"github.com/bosatsu/aws-twilio-fax/services/ingestion"
)

type EmailReceivedListener struct {
	events.BaseEventListener
	pipeline *ingestion.Pipeline
}

func NewEmailReceivedListener(logger logger.Logger, pipeline *ingestion.Pipeline) interfaces.EventListener {
	return &EmailReceivedListener{
		BaseEventListener: events.NewBaseEventListener(
			logger,
			events.GetEventType[dto.EmailReceived](),
			events.QueueEmailReceived,
		),
		pipeline: pipeline,
	}
}

func (l *EmailReceivedListener) Handle(ctx context.Context, baseEvent any) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailReceivedListener.Handle")
	defer span.Finish()
	tracing.SetDefaultListenerSpanTags(ctx, span)
	tracing.LogObjectAsJson(span, "event", baseEvent)

	validatedEvent, err := l.ValidateBaseEvent(ctx, baseEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	received, err := events.DecodeEventData[dto.EmailReceived](ctx, validatedEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	outcome, err := l.pipeline.Process(ctx, received.Bucket, received.Key)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	l.Logger().Infof("Processed inbound email %s/%s: %s", received.Bucket, received.Key, outcome)
	return nil
}
