package message

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/polychat/internal/ai"
	"anoa.com/polychat/internal/entity"
	"anoa.com/polychat/internal/logging"
	channel "anoa.com/polychat/internal/modules/channel/service"
	mailbox "anoa.com/polychat/internal/modules/mailbox/service"
	repo "anoa.com/polychat/internal/modules/message/repository"
	"anoa.com/polychat/internal/realtime"
	"anoa.com/polychat/pkg/apperror"
	"github.com/rs/zerolog"
)

type Mode string

const (
	ModeEnglish Mode = "english"
	ModeTarget  Mode = "target"
)

const (
	DefaultTopic        = "General conversation"
	DefaultGrammarFocus = "None"

	grammarIssueReason = "Grammar check found a potential issue."
	botUnavailable     = "Poly is temporarily unavailable."
	botNoTarget        = "Poly had trouble translating the response."
	botNoEnglish       = "Poly had trouble generating the response."
)

type AIContext struct {
	Topic        string
	GrammarFocus string
}

func (c AIContext) prompt() string {
	topic, focus := c.Topic, c.GrammarFocus
	if topic == "" {
		topic = DefaultTopic
	}
	if focus == "" {
		focus = DefaultGrammarFocus
	}
	return fmt.Sprintf("Topic: %s. Grammar Focus: %s.", topic, focus)
}

// SendInput is one composer submission.
type SendInput struct {
	UserID         string
	DisplayName    string
	ChannelID      string
	RawInput       string
	Mode           Mode
	TargetLang     string
	TargetLangCode string
	AIContext      AIContext
}

// SendResult holds what was written. Warning is set when the user's message
// was stored but the tutor's reply failed.
type SendResult struct {
	Message *entity.Message
	Reply   *entity.Message
	Warning string
}

// Pipeline runs GrammarCheck, Translate, Persist, Notify and GenerateReply
// in that order. The first two abort the send on failure; nothing after
// Persist can undo the stored message.
type Pipeline struct {
	repo     repo.Repository
	broker   realtime.Broker
	ai       ai.TextService
	notifier mailbox.Notifier
	timeout  time.Duration
	log      zerolog.Logger
}

func NewPipeline(messages repo.Repository, broker realtime.Broker, textService ai.TextService, notifier mailbox.Notifier, timeout time.Duration) *Pipeline {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Pipeline{
		repo:     messages,
		broker:   broker,
		ai:       textService,
		notifier: notifier,
		timeout:  timeout,
		log:      logging.Component("pipeline"),
	}
}

func (p *Pipeline) Send(ctx context.Context, in SendInput) (*SendResult, error) {
	if strings.TrimSpace(in.RawInput) == "" {
		return nil, apperror.Validation("Message cannot be empty.")
	}
	if in.Mode == "" {
		in.Mode = ModeEnglish
	}
	if in.Mode != ModeEnglish && in.Mode != ModeTarget {
		return nil, apperror.Validation("Unknown input mode.")
	}
	key, err := ChannelKey(in.ChannelID, in.UserID)
	if err != nil {
		return nil, err
	}

	isAI := in.ChannelID == channel.AIID
	practice := in.Mode == ModeTarget

	var correction *entity.Correction
	if practice || (isAI && in.TargetLang != entity.English) {
		correction, err = p.checkGrammar(ctx, in.RawInput, in.TargetLang)
		if err != nil {
			return nil, err
		}
	}

	text := in.RawInput
	if in.Mode == ModeEnglish && in.TargetLang != entity.English {
		text, err = p.translate(ctx, in.RawInput, in.TargetLang)
		if err != nil {
			return nil, err
		}
	}

	msg := &entity.Message{
		ChannelKey:   key,
		Text:         text,
		OriginalText: in.RawInput,
		UserID:       in.UserID,
		DisplayName:  in.DisplayName,
		Lang:         in.TargetLang,
		LangCode:     in.TargetLangCode,
		IsPractice:   practice,
		Correction:   correction,
	}
	if err := p.persist(ctx, msg); err != nil {
		return nil, apperror.Persistence("Failed to send message to database.", err)
	}
	result := &SendResult{Message: msg}

	if partner, ok := channel.PartnerID(in.ChannelID, in.UserID); ok {
		if err := p.notifier.Notify(ctx, in.UserID, partner); err != nil {
			p.log.Warn().Err(err).Str("channel_id", in.ChannelID).Msg("failed to notify partner")
		}
	}

	if isAI {
		reply, warning := p.reply(ctx, in, text)
		result.Reply = reply
		result.Warning = warning
	}

	return result, nil
}

func (p *Pipeline) checkGrammar(ctx context.Context, text, lang string) (*entity.Correction, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := p.ai.CheckGrammar(ctx, text, lang)
	if err != nil {
		return nil, apperror.Service("Grammar check failed.", err)
	}
	if !res.HasError {
		return nil, nil
	}

	c := &entity.Correction{Correction: res.Correction, Reason: res.Reason}
	if c.Correction == "" {
		c.Correction = text
	}
	if c.Reason == "" {
		c.Reason = grammarIssueReason
	}
	return c, nil
}

func (p *Pipeline) translate(ctx context.Context, text, lang string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	translated, err := p.ai.Translate(ctx, text, lang)
	if err != nil {
		return "", apperror.Service("Translation service failed.", err)
	}
	return translated, nil
}

// reply asks the tutor for an answer and stores it. A failed reply still
// leaves a bot message in the channel.
func (p *Pipeline) reply(ctx context.Context, in SendInput, text string) (*entity.Message, string) {
	aiCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	bot := &entity.Message{
		ChannelKey:  AIKey(in.UserID),
		UserID:      entity.BotUserID,
		DisplayName: entity.BotDisplayName,
		Lang:        in.TargetLang,
		LangCode:    in.TargetLangCode,
		IsBot:       true,
	}

	var warning string
	reply, err := p.ai.GenerateReply(aiCtx, ai.ReplyInput{
		UserText: text,
		UserName: in.DisplayName,
		Lang:     in.TargetLang,
		Context:  in.AIContext.prompt(),
	})
	if err != nil {
		p.log.Warn().Err(err).Str("user_id", in.UserID).Msg("tutor reply failed")
		bot.Text = botUnavailable
		bot.OriginalText = botUnavailable
		warning = replyWarning(err)
	} else {
		bot.Text = reply.Target
		if bot.Text == "" {
			bot.Text = botNoTarget
		}
		bot.OriginalText = reply.English
		if bot.OriginalText == "" {
			bot.OriginalText = botNoEnglish
		}
	}

	if err := p.persist(ctx, bot); err != nil {
		p.log.Error().Err(err).Str("user_id", in.UserID).Msg("failed to store tutor reply")
		if warning == "" {
			warning = "Failed to store Poly's reply."
		}
		return nil, warning
	}
	return bot, warning
}

func replyWarning(err error) string {
	if errors.Is(err, ai.ErrMalformedReply) {
		return err.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Poly took too long to answer."
	}
	return botUnavailable
}

// persist writes msg and announces it on the channel's topic. The write is
// detached from ctx so a client disconnect cannot cancel it halfway.
func (p *Pipeline) persist(ctx context.Context, msg *entity.Message) error {
	ctx = context.WithoutCancel(ctx)
	if err := p.repo.Create(ctx, msg); err != nil {
		return err
	}

	change, err := realtime.NewChange(realtime.Added, realtime.MessagesTopic(msg.ChannelKey), fmt.Sprint(msg.ID), msg)
	if err == nil {
		err = p.broker.Publish(ctx, change)
	}
	if err != nil {
		p.log.Warn().Err(err).Str("channel_key", msg.ChannelKey).Msg("failed to publish message")
	}
	return nil
}
