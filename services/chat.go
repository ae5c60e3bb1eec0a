package services

import (
	"context"
	"log/slog"
	"strings"

	"maternar/internal/events"
	"maternar/models"
	"maternar/store"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

type ChannelInput struct {
	Name        string `json:"name" validate:"required,notblank,max=80"`
	Description string `json:"description" validate:"max=500"`
	Type        string `json:"type" validate:"omitempty,oneof=public private direct"`
	MemberIDs   []uint `json:"memberIds"`
}

type ChatService struct {
	store  store.Store
	bus    events.Bus
	logger *slog.Logger
}

func NewChatService(s store.Store, bus events.Bus, logger *slog.Logger) *ChatService {
	return &ChatService{store: s, bus: bus, logger: logger}
}

// RequireMember returns ErrForbidden unless the user belongs to the channel.
func (cs *ChatService) RequireMember(ctx context.Context, userID, channelID uint) error {
	if _, err := cs.store.GetChannel(ctx, channelID); err != nil {
		return notFound(err, ErrNotFound)
	}
	ok, err := cs.store.IsChannelMember(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (cs *ChatService) Channels(ctx context.Context, userID uint) ([]models.Channel, error) {
	return cs.store.ListChannelsForUser(ctx, userID)
}

// Messages returns a page of the channel history, newest first.
func (cs *ChatService) Messages(ctx context.Context, userID, channelID uint, limit, offset int) ([]models.Message, error) {
	if err := cs.RequireMember(ctx, userID, channelID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return cs.store.ListMessages(ctx, channelID, limit, offset)
}

func (cs *ChatService) Send(ctx context.Context, userID, channelID uint, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, NewValidationError("content is required", FieldError{Field: "content", Error: "is required"})
	}
	if len(content) > 4000 {
		return nil, NewValidationError("content must be at most 4000 characters", FieldError{Field: "content", Error: "must be at most 4000 characters"})
	}
	if err := cs.RequireMember(ctx, userID, channelID); err != nil {
		return nil, err
	}

	m := &models.Message{ChannelID: channelID, UserID: userID, Content: content}
	if err := cs.store.CreateMessage(ctx, m); err != nil {
		return nil, err
	}
	if err := cs.bus.Publish(ctx, events.MessageTopic(channelID), m); err != nil {
		cs.logger.Warn("failed to publish message", "channel_id", channelID, "error", err)
	}
	return m, nil
}

// CreateChannel creates a channel with the creator and the listed users as
// members.
func (cs *ChatService) CreateChannel(ctx context.Context, creatorID uint, in ChannelInput) (*models.Channel, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Type == "" {
		in.Type = models.ChannelPublic
	}

	var ch *models.Channel
	err := cs.store.WithTx(ctx, func(tx store.Store) error {
		ch = &models.Channel{Name: in.Name, Description: in.Description, Type: in.Type, CreatedBy: creatorID}
		if err := tx.CreateChannel(ctx, ch); err != nil {
			return err
		}
		members := append([]uint{creatorID}, in.MemberIDs...)
		for _, id := range members {
			if _, err := tx.GetUserByID(ctx, id); err != nil {
				return notFound(err, ErrUserNotFound)
			}
			if err := tx.AddChannelMember(ctx, &models.ChannelMember{ChannelID: ch.ID, UserID: id}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// Join adds the user to a public channel. Private and direct channels are
// invitation only.
func (cs *ChatService) Join(ctx context.Context, userID, channelID uint) (*models.Channel, error) {
	ch, err := cs.store.GetChannel(ctx, channelID)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	if ch.Type != models.ChannelPublic {
		return nil, ErrForbidden
	}
	if err := cs.store.AddChannelMember(ctx, &models.ChannelMember{ChannelID: ch.ID, UserID: userID}); err != nil {
		return nil, err
	}
	return ch, nil
}

func (cs *ChatService) Members(ctx context.Context, userID, channelID uint) ([]uint, error) {
	if err := cs.RequireMember(ctx, userID, channelID); err != nil {
		return nil, err
	}
	return cs.store.ListChannelMembers(ctx, channelID)
}
