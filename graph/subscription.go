package graph

import (
	"context"
	"encoding/json"

	graphql "github.com/graph-gophers/graphql-go"

	"maternar/internal/events"
	"maternar/models"
)

// relay decodes bus payloads of type T and hands each one to wrap. The output
// channel closes when the bus subscription ends, which happens once ctx is
// done. Payloads that fail to decode or that keep returns false for are
// skipped.
func relay[T any, R any](ctx context.Context, r *Resolver, topic string, keep func(*T) bool, wrap func(T) R) (<-chan R, error) {
	in, err := r.bus.Subscribe(ctx, topic)
	if err != nil {
		return nil, r.fail(ctx, "subscribe", err)
	}
	out := make(chan R)
	go func() {
		defer close(out)
		for data := range in {
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				r.logger.Warn("dropping undecodable event", "topic", topic, "error", err)
				continue
			}
			if keep != nil && !keep(&v) {
				continue
			}
			select {
			case out <- wrap(v):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (r *Resolver) MessageAdded(ctx context.Context, args struct{ ChannelID graphql.ID }) (<-chan *messageResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	channelID, err := parseID(args.ChannelID)
	if err != nil {
		return nil, r.fail(ctx, "messageAdded", err)
	}
	if err := r.svc.Chat.RequireMember(ctx, u.ID, channelID); err != nil {
		return nil, r.fail(ctx, "messageAdded", err)
	}
	return relay(ctx, r, events.MessageTopic(channelID), nil, func(m models.Message) *messageResolver {
		return &messageResolver{root: r, m: &m}
	})
}

func (r *Resolver) UserStatusChanged(ctx context.Context) (<-chan *userStatusResolver, error) {
	if _, err := r.viewer(ctx); err != nil {
		return nil, err
	}
	return relay(ctx, r, events.TopicPresence, nil, func(ev models.PresenceEvent) *userStatusResolver {
		return &userStatusResolver{root: r, ev: ev}
	})
}

func (r *Resolver) TaskUpdated(ctx context.Context, args struct{ ProjectID graphql.ID }) (<-chan *taskEventResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	projectID, err := parseID(args.ProjectID)
	if err != nil {
		return nil, r.fail(ctx, "taskUpdated", err)
	}
	// same visibility as listing the project's tasks
	if _, err := r.svc.Projects.Tasks(ctx, u, projectID); err != nil {
		return nil, r.fail(ctx, "taskUpdated", err)
	}
	return relay(ctx, r, events.TaskTopic(projectID), nil, func(ev models.TaskEvent) *taskEventResolver {
		return &taskEventResolver{root: r, ev: ev}
	})
}

func (r *Resolver) NotificationAdded(ctx context.Context) (<-chan *notificationResolver, error) {
	u, err := r.viewer(ctx)
	if err != nil {
		return nil, err
	}
	keep := func(n *models.Notification) bool { return n.UserID == u.ID }
	return relay(ctx, r, events.NotificationTopic(u.ID), keep, func(n models.Notification) *notificationResolver {
		return &notificationResolver{n: &n}
	})
}
