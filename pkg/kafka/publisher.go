package kafka

import "context"

// Publisher sends an event to a topic. *Producer and *BreakerPublisher
// implement it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
}

// NopPublisher discards every event. It is used when no brokers are configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, *Event) error { return nil }
