package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBusDeliversToTopicSubscribers(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, MessageTopic(1))
	require.NoError(t, err)
	other, err := bus.Subscribe(ctx, MessageTopic(2))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, MessageTopic(1), map[string]string{"content": "hi"}))

	select {
	case data := <-ch:
		var got map[string]string
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "hi", got["content"])
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case <-other:
		t.Fatal("event leaked to another topic")
	default:
	}
}

func TestMemoryBusUnsubscribesOnCancel(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, TopicPresence)
	require.NoError(t, err)
	assert.Equal(t, 1, bus.Subscribers(TopicPresence))

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	assert.Equal(t, 0, bus.Subscribers(TopicPresence))
}

func TestMemoryBusDropsForSlowSubscriber(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := bus.Subscribe(ctx, TopicGamification)
	require.NoError(t, err)

	for i := 0; i < subscriberBuffer*2; i++ {
		require.NoError(t, bus.Publish(ctx, TopicGamification, i))
	}
}

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "message:7", MessageTopic(7))
	assert.Equal(t, "task:3", TaskTopic(3))
	assert.Equal(t, "notification:9", NotificationTopic(9))
}
