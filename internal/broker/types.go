package broker

import (
	"context"

	"github.com/casualjim/chorus/provider"
)

// Broker hands out named topics that fan normalized chunks out to
// subscribers.
type Broker interface {
	Topic(context.Context, string) Topic
}

// Topic is one chunk stream, usually keyed by turn id.
type Topic interface {
	Publish(context.Context, provider.StreamChunk) error
	Subscribe(context.Context, Handler) (Subscription, error)
}

// Handler consumes chunks delivered to a subscription, in publish order.
type Handler func(context.Context, provider.StreamChunk)

// Subscription is one subscriber's registration on a topic.
type Subscription interface {
	ID() string
	Unsubscribe()
}
