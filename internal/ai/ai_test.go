package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"anoa.com/polychat/internal/ai/providers"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider answers from canned strings keyed by a prompt substring.
type fakeProvider struct {
	text    map[string]string
	err     error
	delay   time.Duration
	audio   *providers.Audio

	mu      sync.Mutex
	prompts []string
}

func (f *fakeProvider) answer(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	for key, out := range f.text {
		if strings.Contains(prompt, key) {
			return out, nil
		}
	}
	return "", nil
}

func (f *fakeProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f.answer(ctx, prompt)
}

func (f *fakeProvider) GenerateStructured(ctx context.Context, prompt string, output interface{}) error {
	raw, err := f.answer(ctx, prompt)
	if err != nil {
		return err
	}
	return providers.DecodeJSON(raw, output)
}

func (f *fakeProvider) GenerateAudio(ctx context.Context, prompt string) (*providers.Audio, error) {
	if _, err := f.answer(ctx, prompt); err != nil {
		return nil, err
	}
	if f.audio == nil {
		return nil, providers.ErrNoAudio
	}
	return f.audio, nil
}

func (f *fakeProvider) Close() {}

func TestGateway_Translate(t *testing.T) {
	p := &fakeProvider{text: map[string]string{"Translate to Spanish": "  Hola  "}}
	g := NewGateway(p, time.Second)

	out, err := g.Translate(context.Background(), "Hello", "Spanish")
	require.NoError(t, err)
	assert.Equal(t, "Hola", out)
	assert.Equal(t, `Translate to Spanish. Output ONLY the translated text: "Hello"`, p.prompts[0])
}

func TestGateway_TimeoutIsAnError(t *testing.T) {
	p := &fakeProvider{delay: time.Second}
	g := NewGateway(p, 10*time.Millisecond)

	out, err := g.Translate(context.Background(), "Hello", "Spanish")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "Hello", out)
}

func TestGateway_Explain(t *testing.T) {
	g := NewGateway(&fakeProvider{text: map[string]string{`Define "gato"`: "[Noun] A cat."}}, time.Second)
	out, err := g.Explain(context.Background(), "gato")
	require.NoError(t, err)
	assert.Equal(t, "[Noun] A cat.", out)

	out, err = NewGateway(&fakeProvider{}, time.Second).Explain(context.Background(), "gato")
	require.NoError(t, err)
	assert.Equal(t, NoDefinition, out)

	out, err = NewGateway(&fakeProvider{err: errors.New("quota")}, time.Second).Explain(context.Background(), "gato")
	assert.Error(t, err)
	assert.Equal(t, DefinitionFailed, out)
}

func TestGateway_CheckGrammar(t *testing.T) {
	p := &fakeProvider{text: map[string]string{
		"Yo tiene": `{"hasError": true, "correction": "Yo tengo un gato", "reason": "verb conjugation"}`,
		"Yo tengo": "```json\n{\"hasError\": false}\n```",
		"garbage":  "I think it is fine!",
	}}
	g := NewGateway(p, time.Second)
	ctx := context.Background()

	got, err := g.CheckGrammar(ctx, "Yo tiene un gato", "Spanish")
	require.NoError(t, err)
	assert.Equal(t, GrammarResult{HasError: true, Correction: "Yo tengo un gato", Reason: "verb conjugation"}, got)

	got, err = g.CheckGrammar(ctx, "Yo tengo un gato", "Spanish")
	require.NoError(t, err)
	assert.False(t, got.HasError)

	got, err = g.CheckGrammar(ctx, "garbage", "Spanish")
	require.NoError(t, err)
	assert.False(t, got.HasError)
	assert.NotEmpty(t, got.Note)

	_, err = NewGateway(&fakeProvider{err: errors.New("unreachable")}, time.Second).CheckGrammar(ctx, "x", "Spanish")
	assert.Error(t, err)
}

func TestGateway_GenerateReply(t *testing.T) {
	p := &fakeProvider{text: map[string]string{
		"User said: \"hola\"": `{"english": "Hi there!", "target": "¡Hola!"}`,
		"User said: \"???\"":  `not json`,
	}}
	g := NewGateway(p, time.Second)
	ctx := context.Background()

	reply, err := g.GenerateReply(ctx, ReplyInput{UserText: "hola", UserName: "ana", Lang: "Spanish", Context: "Topic: General conversation. Grammar Focus: None."})
	require.NoError(t, err)
	assert.Equal(t, Reply{English: "Hi there!", Target: "¡Hola!"}, reply)
	assert.Contains(t, p.prompts[0], "Use context: Topic: General conversation. Grammar Focus: None.")
	assert.Contains(t, p.prompts[0], "with ana")

	reply, err = g.GenerateReply(ctx, ReplyInput{UserText: "???", Lang: "Spanish"})
	assert.ErrorIs(t, err, ErrMalformedReply)
	assert.Equal(t, FallbackReply, reply)
}

func newProxy(t *testing.T, backend Backend) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(backend).Register(r, "/api/ai")
	return r
}

func post(t *testing.T, r http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/ai", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Dispatch(t *testing.T) {
	p := &fakeProvider{text: map[string]string{
		"Translate to French": "Bonjour",
		"Define":              "[Noun] A greeting.",
		"Analyze":             `{"hasError": false}`,
		"RETURN ONLY JSON":    `{"english": "Hello!", "target": "¡Hola!"}`,
		"Speak this":          "",
	}, audio: &providers.Audio{MIMEType: "audio/L16;rate=24000", Data: []byte{1, 2, 3}}}
	r := newProxy(t, NewGateway(p, time.Second))

	w := post(t, r, Request{Action: ActionTranslate, Text: "Hello", TargetLang: "French"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"translatedText":"Bonjour"}`, w.Body.String())

	w = post(t, r, Request{Action: ActionExplain, Text: "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"definition":"[Noun] A greeting."}`, w.Body.String())

	w = post(t, r, Request{Action: ActionCheckGrammar, Text: "Bonjour", Lang: "French"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"hasError":false}`, w.Body.String())

	w = post(t, r, Request{Action: ActionGenerateReply, UserText: "hola", UserName: "ana", Lang: "Spanish"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response":{"english":"Hello!","target":"¡Hola!"}}`, w.Body.String())

	w = post(t, r, Request{Action: ActionPlayTTS, Text: "hola", LangCode: "es-ES"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"inlineData":{"mimeType":"audio/L16;rate=24000","data":"AQID"}}`, w.Body.String())
}

func TestHandler_Errors(t *testing.T) {
	r := newProxy(t, NewGateway(&fakeProvider{text: map[string]string{"RETURN ONLY JSON": "oops"}}, time.Second))

	w := post(t, r, Request{Action: "summarize", Text: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid action"}`, w.Body.String())

	w = post(t, r, Request{Action: ActionTranslate, Text: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Target language is required")

	w = post(t, r, Request{Action: ActionGenerateReply, UserText: "hi", Lang: "Spanish"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var reply ReplyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, "AI failed to generate valid JSON.", reply.Error)
	assert.Equal(t, FallbackReply, *reply.Response)

	w = post(t, r, Request{Action: ActionPlayTTS, Text: "hola", LangCode: "es-ES"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"No audio data returned by model."}`, w.Body.String())

	w = post(t, newProxy(t, nil), Request{Action: ActionTranslate, Text: "x", TargetLang: "French"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Missing API key"}`, w.Body.String())
}

func TestHandler_Preflight(t *testing.T) {
	r := newProxy(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/ai", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestClient_AgainstProxy(t *testing.T) {
	p := &fakeProvider{text: map[string]string{
		"Translate to German": "Hallo",
		"Analyze":             `{"hasError": true, "correction": "Ich habe", "reason": "verb"}`,
		"RETURN ONLY JSON":    `{"english": "Hi", "target": "Hallo"}`,
	}}
	srv := httptest.NewServer(newProxy(t, NewGateway(p, time.Second)))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/ai", time.Second)
	ctx := context.Background()

	out, err := c.Translate(ctx, "Hello", "German")
	require.NoError(t, err)
	assert.Equal(t, "Hallo", out)

	g, err := c.CheckGrammar(ctx, "Ich hat", "German")
	require.NoError(t, err)
	assert.Equal(t, "Ich habe", g.Correction)

	reply, err := c.GenerateReply(ctx, ReplyInput{UserText: "hi", UserName: "ana", Lang: "German"})
	require.NoError(t, err)
	assert.Equal(t, "Hallo", reply.Target)

	def, err := c.Explain(ctx, "Haus")
	require.NoError(t, err)
	assert.Equal(t, NoDefinition, def)
}

func TestClient_FallbacksOnFailure(t *testing.T) {
	srv := httptest.NewServer(newProxy(t, nil))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/ai", time.Second)
	ctx := context.Background()

	out, err := c.Translate(ctx, "Hello", "German")
	assert.Error(t, err)
	assert.Equal(t, "Hello", out)

	def, err := c.Explain(ctx, "Haus")
	assert.Error(t, err)
	assert.Equal(t, DefinitionFailed, def)

	g, err := c.CheckGrammar(ctx, "x", "German")
	assert.Error(t, err)
	assert.False(t, g.HasError)

	_, err = c.GenerateReply(ctx, ReplyInput{UserText: "hi", Lang: "German"})
	assert.Error(t, err)
}

func TestDisabled_ReturnsFallbacks(t *testing.T) {
	var svc TextService = Disabled{}
	ctx := context.Background()

	text, err := svc.Translate(ctx, "hola", "Spanish")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, "hola", text)

	def, err := svc.Explain(ctx, "gato")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, DefinitionFailed, def)

	reply, err := svc.GenerateReply(ctx, ReplyInput{UserText: "hi"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, FallbackReply, reply)
}
