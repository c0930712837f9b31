package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var (
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrMalformedOutput means the model answered but not with parseable JSON.
	ErrMalformedOutput = errors.New("model returned malformed JSON")
	ErrNoAudio         = errors.New("no audio data returned by model")
)

// LLMProvider abstracts the model backend.
type LLMProvider interface {
	// GenerateText returns the trimmed text of the first candidate.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// GenerateStructured asks for JSON and decodes the first JSON object in
	// the answer into output.
	GenerateStructured(ctx context.Context, prompt string, output interface{}) error

	// GenerateAudio returns the first inline audio part of the answer.
	GenerateAudio(ctx context.Context, prompt string) (*Audio, error)

	Close()
}

type Audio struct {
	MIMEType string
	Data     []byte
}

// GeminiProvider is the LLMProvider for Google Gemini. The text, JSON and
// speech models are separate instances so concurrent calls never share
// mutable model settings.
type GeminiProvider struct {
	client    *genai.Client
	textModel *genai.GenerativeModel
	jsonModel *genai.GenerativeModel
	ttsModel  *genai.GenerativeModel
}

func NewGeminiProvider(ctx context.Context, apiKey, modelName, ttsModelName string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	if ttsModelName == "" {
		ttsModelName = "gemini-2.5-flash-preview-tts"
	}

	textModel := client.GenerativeModel(modelName)
	textModel.SetTemperature(0.7)

	jsonModel := client.GenerativeModel(modelName)
	jsonModel.SetTemperature(0.7)
	jsonModel.ResponseMIMEType = "application/json"

	return &GeminiProvider{
		client:    client,
		textModel: textModel,
		jsonModel: jsonModel,
		ttsModel:  client.GenerativeModel(ttsModelName),
	}, nil
}

func firstParts(resp *genai.GenerateContentResponse) ([]genai.Part, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response from LLM")
	}
	return resp.Candidates[0].Content.Parts, nil
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	parts, err := firstParts(resp)
	if err != nil {
		return "", err
	}
	for _, part := range parts {
		if txt, ok := part.(genai.Text); ok {
			return strings.TrimSpace(string(txt)), nil
		}
	}
	return "", fmt.Errorf("no text content in response")
}

// GenerateText implements LLMProvider
func (g *GeminiProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.textModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return firstText(resp)
}

// GenerateStructured implements LLMProvider
func (g *GeminiProvider) GenerateStructured(ctx context.Context, prompt string, output interface{}) error {
	resp, err := g.jsonModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return err
	}
	raw, err := firstText(resp)
	if err != nil {
		return err
	}
	return DecodeJSON(raw, output)
}

// GenerateAudio implements LLMProvider
func (g *GeminiProvider) GenerateAudio(ctx context.Context, prompt string) (*Audio, error) {
	resp, err := g.ttsModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, err
	}
	parts, err := firstParts(resp)
	if err != nil {
		return nil, ErrNoAudio
	}
	for _, part := range parts {
		if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
			return &Audio{MIMEType: blob.MIMEType, Data: blob.Data}, nil
		}
	}
	return nil, ErrNoAudio
}

// Close implements LLMProvider
func (g *GeminiProvider) Close() {
	g.client.Close()
}

var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

// DecodeJSON decodes the outermost JSON object found in raw, tolerating
// prose or code fences around it.
func DecodeJSON(raw string, output interface{}) error {
	candidate := strings.TrimSpace(raw)
	if m := jsonObject.FindString(candidate); m != "" {
		candidate = m
	}
	if err := json.Unmarshal([]byte(candidate), output); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}
