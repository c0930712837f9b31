package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"anoa.com/polychat/internal/ai/providers"
	"anoa.com/polychat/internal/logging"
	"anoa.com/polychat/pkg/textutil"
	"github.com/rs/zerolog"
)

// Gateway implements TextService and Speaker on top of an LLMProvider.
type Gateway struct {
	provider providers.LLMProvider
	timeout  time.Duration
	log      zerolog.Logger
}

func NewGateway(provider providers.LLMProvider, timeout time.Duration) *Gateway {
	return &Gateway{
		provider: provider,
		timeout:  timeout,
		log:      logging.Component("ai"),
	}
}

func (g *Gateway) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func translatePrompt(text, targetLang string) string {
	return fmt.Sprintf(`Translate to %s. Output ONLY the translated text: "%s"`, targetLang, text)
}

func explainPrompt(text string) string {
	return fmt.Sprintf(`Define "%s" in English. Format: [Part of Speech] Definition. Max 20 words. No asterisks.`, text)
}

func grammarPrompt(text, lang string) string {
	return fmt.Sprintf(`Analyze the following text in %s. If there is an error, return ONLY JSON: { "hasError": true, "correction": "corrected text", "reason": "brief explanation" }. If the grammar is correct, return ONLY JSON: { "hasError": false }. Text: "%s"`, lang, text)
}

func replyPrompt(in ReplyInput) string {
	return fmt.Sprintf(`RETURN ONLY JSON. Respond in English, then translate to %s. Use context: %s. Chat as Poly, a friendly tutor, with %s. User said: "%s". JSON format: { "english": "...", "target": "..." }`, in.Lang, in.Context, in.UserName, in.UserText)
}

func speechPrompt(text, langCode string) string {
	return fmt.Sprintf(`Speak this text with a clear %s accent and a friendly tone: "%s"`, langCode, text)
}

func (g *Gateway) Translate(ctx context.Context, text, targetLang string) (string, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	out, err := g.provider.GenerateText(ctx, translatePrompt(text, targetLang))
	if err != nil {
		return text, fmt.Errorf("translate: %w", err)
	}
	out = textutil.Clean(out)
	if out == "" {
		return text, nil
	}
	return out, nil
}

func (g *Gateway) Explain(ctx context.Context, text string) (string, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	out, err := g.provider.GenerateText(ctx, explainPrompt(text))
	if err != nil {
		return DefinitionFailed, fmt.Errorf("explain: %w", err)
	}
	out = textutil.Clean(out)
	if out == "" {
		return NoDefinition, nil
	}
	return out, nil
}

// CheckGrammar treats unparseable model output as "no error" and says so
// in Note. Only a failed call is an error.
func (g *Gateway) CheckGrammar(ctx context.Context, text, lang string) (GrammarResult, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	var result GrammarResult
	err := g.provider.GenerateStructured(ctx, grammarPrompt(text, lang), &result)
	if errors.Is(err, providers.ErrMalformedOutput) {
		g.log.Warn().Err(err).Msg("grammar check output was not JSON")
		return GrammarResult{HasError: false, Note: malformedGrammarMsg}, nil
	}
	if err != nil {
		return GrammarResult{}, fmt.Errorf("grammar check: %w", err)
	}

	result.Correction = textutil.Clean(result.Correction)
	result.Reason = textutil.Clean(result.Reason)
	result.Note = ""
	return result, nil
}

// GenerateReply returns FallbackReply with ErrMalformedReply when the model
// answered with something other than the expected JSON.
func (g *Gateway) GenerateReply(ctx context.Context, in ReplyInput) (Reply, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	var reply Reply
	err := g.provider.GenerateStructured(ctx, replyPrompt(in), &reply)
	if errors.Is(err, providers.ErrMalformedOutput) {
		g.log.Warn().Err(err).Msg("reply output was not JSON")
		return FallbackReply, ErrMalformedReply
	}
	if err != nil {
		return Reply{}, fmt.Errorf("generate reply: %w", err)
	}

	reply.English = textutil.Clean(reply.English)
	reply.Target = textutil.Clean(reply.Target)
	return reply, nil
}

func (g *Gateway) Speak(ctx context.Context, text, langCode string) (*InlineData, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	audio, err := g.provider.GenerateAudio(ctx, speechPrompt(text, langCode))
	if err != nil {
		return nil, err
	}
	return &InlineData{
		MimeType: audio.MIMEType,
		Data:     base64.StdEncoding.EncodeToString(audio.Data),
	}, nil
}
