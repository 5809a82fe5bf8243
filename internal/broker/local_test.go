package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/chorus/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	chunks []provider.StreamChunk
}

func (r *recorder) handle(_ context.Context, chunk provider.StreamChunk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, chunk)
}

func (r *recorder) snapshot() []provider.StreamChunk {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]provider.StreamChunk(nil), r.chunks...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond)
}

func TestLocalBrokerReusesTopics(t *testing.T) {
	t.Parallel()

	b := Local()
	topic1 := b.Topic(context.Background(), "turn-1")
	topic2 := b.Topic(context.Background(), "turn-1")
	assert.Same(t, topic1, topic2)

	other := b.Topic(context.Background(), "turn-2")
	assert.NotSame(t, topic1, other)
}

func TestLocalTopicFanOut(t *testing.T) {
	t.Parallel()

	b := Local()
	topic := b.Topic(context.Background(), "turn-1")

	first := &recorder{}
	second := &recorder{}
	sub1, err := topic.Subscribe(context.Background(), first.handle)
	require.NoError(t, err)
	defer sub1.Unsubscribe()
	sub2, err := topic.Subscribe(context.Background(), second.handle)
	require.NoError(t, err)
	defer sub2.Unsubscribe()

	require.NoError(t, topic.Publish(context.Background(), provider.Text{Text: "Hello"}))
	require.NoError(t, topic.Publish(context.Background(), provider.Text{Text: ", world"}))

	waitFor(t, func() bool { return len(first.snapshot()) == 2 && len(second.snapshot()) == 2 })
	assert.Equal(t, "Hello", first.snapshot()[0].(provider.Text).Text)
	assert.Equal(t, ", world", second.snapshot()[1].(provider.Text).Text)
}

func TestLocalTopicSubscribeRequiresHandler(t *testing.T) {
	t.Parallel()

	b := Local()
	topic := b.Topic(context.Background(), "turn-1")
	_, err := topic.Subscribe(context.Background(), nil)
	require.Error(t, err)
}

func TestLocalTopicUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	b := Local()
	topic := b.Topic(context.Background(), "turn-1")

	rec := &recorder{}
	sub, err := topic.Subscribe(context.Background(), rec.handle)
	require.NoError(t, err)

	require.NoError(t, topic.Publish(context.Background(), provider.Text{Text: "one"}))
	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })

	sub.Unsubscribe()
	require.NoError(t, topic.Publish(context.Background(), provider.Text{Text: "two"}))

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}

func TestLocalTopicDropsCancelledSubscribers(t *testing.T) {
	t.Parallel()

	b := Local()
	topic := b.Topic(context.Background(), "turn-1")

	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	_, err := topic.Subscribe(ctx, rec.handle)
	require.NoError(t, err)

	cancel()
	require.NoError(t, topic.Publish(context.Background(), provider.Text{Text: "late"}))

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestLocalTopicDropsSlowSubscribers(t *testing.T) {
	t.Parallel()

	b := Local().(*localBroker).WithSlowSubscriberTimeout(10 * time.Millisecond)
	topic := b.Topic(context.Background(), "turn-1")

	// A handler that never returns keeps the buffer from draining.
	block := make(chan struct{})
	defer close(block)
	sub, err := topic.Subscribe(context.Background(), func(context.Context, provider.StreamChunk) {
		<-block
	})
	require.NoError(t, err)

	// Fill the buffer past capacity; the publisher must not hang.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 60; i++ {
			_ = topic.Publish(context.Background(), provider.Text{Text: "x"})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	_ = sub
}
