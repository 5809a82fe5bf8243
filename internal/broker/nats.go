package broker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/chorus/pkg/slogx"
	"github.com/casualjim/chorus/pkg/uuidx"
	"github.com/casualjim/chorus/provider"
	"github.com/nats-io/nats.go"
)

type natsBroker struct {
	client *nats.Conn
	topics *haxmap.Map[string, *natsTopic]
}

// NATS creates a broker that fans chunks out over a NATS connection, so
// consumers in other processes can follow a turn's stream.
func NATS(client *nats.Conn) Broker {
	return &natsBroker{
		client: client,
		topics: haxmap.New[string, *natsTopic](),
	}
}

func (b *natsBroker) Topic(ctx context.Context, id string) Topic {
	top, _ := b.topics.GetOrCompute(id, func() *natsTopic {
		return &natsTopic{
			subject: id,
			client:  b.client,
		}
	})
	return top
}

type natsTopic struct {
	client  *nats.Conn
	subject string
}

func (t *natsTopic) Publish(ctx context.Context, chunk provider.StreamChunk) error {
	data, err := provider.MarshalChunk(chunk)
	if err != nil {
		return err
	}
	return t.client.Publish(t.subject, data)
}

func (t *natsTopic) Subscribe(ctx context.Context, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	channel := make(chan provider.StreamChunk, 50)
	nsub, err := t.client.Subscribe(t.subject, func(msg *nats.Msg) {
		chunk, err := provider.UnmarshalChunk(msg.Data)
		if err != nil {
			slog.Error("failed to unmarshal chunk", slogx.Error(err), slog.String("subject", t.subject))
			return
		}
		channel <- chunk
	})
	if err != nil {
		return nil, err
	}
	nsub.SetClosedHandler(func(_ string) { close(channel) })

	go func() {
		for {
			select {
			case chunk, ok := <-channel:
				if !ok {
					return
				}
				handler(ctx, chunk)
			case <-ctx.Done():
				return
			}
		}
	}()

	return &natsSubscription{
		id:  uuidx.NewString(),
		sub: nsub,
	}, nil
}

type natsSubscription struct {
	id  string
	sub *nats.Subscription
}

func (n *natsSubscription) ID() string {
	return n.id
}

func (n *natsSubscription) Unsubscribe() {
	if err := n.sub.Unsubscribe(); err != nil {
		slog.Error("failed to unsubscribe", slogx.Error(err), slog.String("subscription", n.id))
	}
}
