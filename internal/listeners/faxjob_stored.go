package listeners

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/bosatsu/aws-twilio-fax/dto"
	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/logger"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
	"github.com/bosatsu/aws-twilio-fax/services/dispatch"
	"github.com/bosatsu/aws-twilio-fax/services/events"
)

type FaxJobStoredListener struct {
	events.BaseEventListener
	dispatcher *dispatch.Dispatcher
}

func NewFaxJobStoredListener(logger logger.Logger, dispatcher *dispatch.Dispatcher) interfaces.EventListener {
	return &FaxJobStoredListener{
		BaseEventListener: events.NewBaseEventListener(
			logger,
			events.GetEventType[dto.FaxJobStored](),
			events.QueueFaxJobStored,
		),
		dispatcher: dispatcher,
	}
}

func (l *FaxJobStoredListener) Handle(ctx context.Context, baseEvent any) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "FaxJobStoredListener.Handle")
	defer span.Finish()
	tracing.SetDefaultListenerSpanTags(ctx, span)
	tracing.LogObjectAsJson(span, "event", baseEvent)

	validatedEvent, err := l.ValidateBaseEvent(ctx, baseEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	stored, err := events.DecodeEventData[dto.FaxJobStored](ctx, validatedEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return l.dispatcher.Dispatch(ctx, stored.Bucket, stored.Key)
}
