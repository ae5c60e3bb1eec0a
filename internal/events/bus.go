// Package events fans out portal events (chat messages, presence, task and
// notification changes) to live subscribers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Topics
const (
	TopicPresence     = "presence"
	TopicGamification = "gamification"
)

func MessageTopic(channelID uint) string { return fmt.Sprintf("message:%d", channelID) }
func TaskTopic(projectID uint) string { return fmt.Sprintf("task:%d", projectID) }
func NotificationTopic(userID uint) string { return fmt.Sprintf("notification:%d", userID) }

// Bus publishes JSON payloads on topics. Subscribe returns a channel that is
// closed once ctx is done.
type Bus interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
}

// subscriberBuffer bounds each subscriber queue; a slow subscriber loses
// events rather than blocking publishers.
const subscriberBuffer = 32

// MemoryBus delivers events inside one process.
type MemoryBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan []byte
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[int]chan []byte)}
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	b.deliver(topic, data)
	return nil
}

func (b *MemoryBus) deliver(topic string, data []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- data:
		default:
			slog.Warn("dropping event for slow subscriber", "topic", topic)
		}
	}
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	ch := make(chan []byte, subscriberBuffer)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan []byte)
	}
	b.subs[topic][id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[topic], id)
		if len(b.subs[topic]) == 0 {
			delete(b.subs, topic)
		}
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// Subscribers reports how many subscribers a topic has.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
