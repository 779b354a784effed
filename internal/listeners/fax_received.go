package listeners

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/bosatsu/aws-twilio-fax/dto"
	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/logger"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
	"github.com/bosatsu/aws-twilio-fax/services/events"
	"github.com/bosatsu/aws-twilio-fax/services/faxdelivery"
)

type FaxReceivedListener struct {
	events.BaseEventListener
	delivery *faxdelivery.Service
}

func NewFaxReceivedListener(logger logger.Logger, delivery *faxdelivery.Service) interfaces.EventListener {
	return &FaxReceivedListener{
		BaseEventListener: events.NewBaseEventListener(
			logger,
			events.GetEventType[dto.FaxReceived](),
			events.QueueFaxReceived,
		),
		delivery: delivery,
	}
}

func (l *FaxReceivedListener) Handle(ctx context.Context, baseEvent any) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "FaxReceivedListener.Handle")
	defer span.Finish()
	tracing.SetDefaultListenerSpanTags(ctx, span)
	tracing.LogObjectAsJson(span, "event", baseEvent)

	validatedEvent, err := l.ValidateBaseEvent(ctx, baseEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	received, err := events.DecodeEventData[dto.FaxReceived](ctx, validatedEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return l.delivery.Deliver(ctx, received.Bucket, received.Key)
}
