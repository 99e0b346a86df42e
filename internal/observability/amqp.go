package observability

import "context"

// EventPublisher ships a JSON event to the broker under a routing key.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

var defaultPublisher EventPublisher

// SetPublisher installs the process-wide publisher used by PublishEvent.
func SetPublisher(publisher EventPublisher) {
	defaultPublisher = publisher
}

// PublishEvent publishes through the installed publisher. Failures are
// counted and returned; callers treat them as non-fatal.
func PublishEvent(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error {
	if defaultPublisher == nil {
		return nil
	}

	err := defaultPublisher.Publish(ctx, routingKey, message, headers)
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}
