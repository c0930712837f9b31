// Package ai wraps the language model behind the four text operations the
// chat needs, either in-process or through the HTTP proxy.
package ai

import (
	"context"
	"errors"
)

const (
	NoDefinition        = "No definition found."
	DefinitionFailed    = "Could not load definition."
	malformedGrammarMsg = "AI returned malformed JSON, assumed correct."
	malformedReplyMsg   = "AI failed to generate valid JSON."
)

// ErrMalformedReply is returned with FallbackReply when the model's reply
// could not be parsed.
var ErrMalformedReply = errors.New(malformedReplyMsg)

// FallbackReply is shown when the tutor's reply could not be parsed.
var FallbackReply = Reply{
	English: "I'm sorry, I had a processing error. Can you try again?",
	Target:  "Lo siento, tuve un error de procesamiento. ¿Puedes intentar de nuevo?",
}

type ReplyInput struct {
	UserText string
	UserName string
	Lang     string
	Context  string
}

// TextService is the AI collaborator of the send pipeline. Implementations
// may be slow or fail; callers bound them with a context deadline.
type TextService interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
	Explain(ctx context.Context, text string) (string, error)
	CheckGrammar(ctx context.Context, text, lang string) (GrammarResult, error)
	GenerateReply(ctx context.Context, in ReplyInput) (Reply, error)
}

// Speaker synthesises speech. It is not part of TextService since only the
// proxy exposes it.
type Speaker interface {
	Speak(ctx context.Context, text, langCode string) (*InlineData, error)
}

// ErrNotConfigured is returned by Disabled for every operation.
var ErrNotConfigured = errors.New("AI service is not configured")

// Disabled stands in when neither a proxy nor an API key is configured.
// Operations that have a display fallback return it with the error.
type Disabled struct{}

func (Disabled) Translate(_ context.Context, text, _ string) (string, error) {
	return text, ErrNotConfigured
}

func (Disabled) Explain(context.Context, string) (string, error) {
	return DefinitionFailed, ErrNotConfigured
}

func (Disabled) CheckGrammar(context.Context, string, string) (GrammarResult, error) {
	return GrammarResult{}, ErrNotConfigured
}

func (Disabled) GenerateReply(context.Context, ReplyInput) (Reply, error) {
	return FallbackReply, ErrNotConfigured
}
