package events

import "context"

// Publisher sends domain events to the outside world.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (NoopPublisher) Close() error { return nil }
