package message

import (
	"context"
	"errors"
	"time"

	"anoa.com/polychat/internal/ai"
	"anoa.com/polychat/internal/entity"
	mailbox "anoa.com/polychat/internal/modules/mailbox/service"
	"anoa.com/polychat/internal/modules/message/dto"
	repo "anoa.com/polychat/internal/modules/message/repository"
	"anoa.com/polychat/internal/realtime"
	"anoa.com/polychat/pkg/apperror"
	"gorm.io/gorm"
)

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

type Service interface {
	Send(ctx context.Context, userID, channelID string, req dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	History(ctx context.Context, userID, channelID string, limit int) (*dto.HistoryResponse, error)
	// Feed returns a live history window for channelID. The caller runs it.
	Feed(userID, channelID string) (*HistoryFeed, error)
	ResetAI(ctx context.Context, userID string) error
}

type Options struct {
	PageSize  int
	AITimeout time.Duration
}

type service struct {
	repo     repo.Repository
	broker   realtime.Broker
	users    UserFinder
	pipeline *Pipeline
	pageSize int
}

func NewService(messages repo.Repository, broker realtime.Broker, users UserFinder, textService ai.TextService, notifier mailbox.Notifier, opts Options) Service {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &service{
		repo:     messages,
		broker:   broker,
		users:    users,
		pipeline: NewPipeline(messages, broker, textService, notifier, opts.AITimeout),
		pageSize: opts.PageSize,
	}
}

func (s *service) Send(ctx context.Context, userID, channelID string, req dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, err
	}

	res, err := s.pipeline.Send(ctx, SendInput{
		UserID:         user.ID,
		DisplayName:    user.DisplayName,
		ChannelID:      channelID,
		RawInput:       req.Text,
		Mode:           Mode(req.Mode),
		TargetLang:     user.TargetLang,
		TargetLangCode: entity.LanguageCode(user.TargetLang),
		AIContext:      AIContext{Topic: req.AIContext.Topic, GrammarFocus: req.AIContext.GrammarFocus},
	})
	if err != nil {
		return nil, err
	}

	return &dto.SendMessageResponse{
		Message: res.Message,
		Reply:   res.Reply,
		Warning: res.Warning,
	}, nil
}

func (s *service) History(ctx context.Context, userID, channelID string, limit int) (*dto.HistoryResponse, error) {
	key, err := ChannelKey(channelID, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.pageSize
	}

	page, err := loadPage(ctx, s.repo, channelID, key, limit, limit == s.pageSize)
	if err != nil {
		return nil, apperror.Persistence("Failed to load messages.", err)
	}
	return &dto.HistoryResponse{
		ChannelID:  page.ChannelID,
		Messages:   page.Messages,
		WindowSize: page.WindowSize,
		AutoScroll: page.AutoScroll,
	}, nil
}

func (s *service) Feed(userID, channelID string) (*HistoryFeed, error) {
	key, err := ChannelKey(channelID, userID)
	if err != nil {
		return nil, err
	}
	return NewHistoryFeed(s.repo, s.broker, channelID, key, s.pageSize), nil
}

// ResetAI clears the user's conversation with the tutor.
func (s *service) ResetAI(ctx context.Context, userID string) error {
	key := AIKey(userID)
	if _, err := s.repo.DeleteByChannel(ctx, key); err != nil {
		return apperror.Persistence("Failed to reset conversation.", err)
	}

	change, err := realtime.NewChange(realtime.Removed, realtime.MessagesTopic(key), key, nil)
	if err != nil {
		return err
	}
	return s.broker.Publish(ctx, change)
}
