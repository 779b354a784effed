package interfaces

import "context"

// EventListener is implemented by every queue listener.
type EventListener interface {
	Handle(ctx context.Context, baseEvent any) error
	GetEventType() string
	GetQueueName() string
}

// EventPublisher publishes domain events onto the broker.
type EventPublisher interface {
	PublishEvent(ctx context.Context, entityId string, payload interface{}, routingKey string) error
}
