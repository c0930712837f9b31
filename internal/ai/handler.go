package ai

import (
	"context"
	"errors"
	"net/http"

	"anoa.com/polychat/internal/ai/providers"
	"anoa.com/polychat/internal/logging"
	"anoa.com/polychat/pkg/validator"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Backend is what the proxy serves: the four text operations plus speech.
type Backend interface {
	TextService
	Speaker
}

type actionFunc func(ctx context.Context, req Request) (int, any)

// Handler is the single-endpoint AI proxy. Requests are routed on their
// action field through a fixed dispatch table.
type Handler struct {
	backend Backend
	actions map[Action]actionFunc
}

// NewHandler builds the proxy. A nil backend means no API key is configured
// and every request is answered with 500.
func NewHandler(backend Backend) *Handler {
	h := &Handler{backend: backend}
	h.actions = map[Action]actionFunc{
		ActionTranslate:     h.translate,
		ActionExplain:       h.explain,
		ActionCheckGrammar:  h.checkGrammar,
		ActionGenerateReply: h.generateReply,
		ActionPlayTTS:       h.playTTS,
		actionPlayGeminiTTS: h.playTTS,
	}
	return h
}

// CORS opens the proxy to every origin. Preflight requests get 204.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"POST", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type"},
	})
}

// Register mounts the proxy on path.
func (h *Handler) Register(r gin.IRouter, path string) {
	group := r.Group(path, CORS())
	group.POST("", h.Handle)
	group.OPTIONS("", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func (h *Handler) Handle(c *gin.Context) {
	if h.backend == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Missing API key"})
		return
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	action, ok := h.actions[req.Action]
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid action"})
		return
	}

	status, body := action(c.Request.Context(), req)
	c.JSON(status, body)
}

func invalid(err error) (int, any) {
	return http.StatusBadRequest, ErrorResponse{Error: validator.FormatValidationError(err)}
}

func serverError(action Action, err error) (int, any) {
	log := logging.Component("ai-proxy")
	log.Error().Err(err).Str("action", string(action)).Msg("model call failed")
	return http.StatusInternalServerError, ErrorResponse{Error: "Server error: " + err.Error()}
}

func (h *Handler) translate(ctx context.Context, req Request) (int, any) {
	in := translateRequest{Text: req.Text, TargetLang: req.TargetLang}
	if err := validator.Struct(in); err != nil {
		return invalid(err)
	}
	out, err := h.backend.Translate(ctx, in.Text, in.TargetLang)
	if err != nil {
		return serverError(req.Action, err)
	}
	return http.StatusOK, TranslateResponse{TranslatedText: out}
}

func (h *Handler) explain(ctx context.Context, req Request) (int, any) {
	in := explainRequest{Text: req.Text}
	if err := validator.Struct(in); err != nil {
		return invalid(err)
	}
	out, err := h.backend.Explain(ctx, in.Text)
	if err != nil {
		return serverError(req.Action, err)
	}
	return http.StatusOK, ExplainResponse{Definition: out}
}

func (h *Handler) checkGrammar(ctx context.Context, req Request) (int, any) {
	in := grammarRequest{Text: req.Text, Lang: req.Lang}
	if err := validator.Struct(in); err != nil {
		return invalid(err)
	}
	result, err := h.backend.CheckGrammar(ctx, in.Text, in.Lang)
	if err != nil {
		return serverError(req.Action, err)
	}
	return http.StatusOK, result
}

func (h *Handler) generateReply(ctx context.Context, req Request) (int, any) {
	in := replyRequest{UserText: req.UserText, UserName: req.UserName, Lang: req.Lang, Context: req.Context}
	if err := validator.Struct(in); err != nil {
		return invalid(err)
	}
	reply, err := h.backend.GenerateReply(ctx, ReplyInput(in))
	if errors.Is(err, ErrMalformedReply) {
		return http.StatusInternalServerError, ReplyResponse{Error: malformedReplyMsg, Response: &FallbackReply}
	}
	if err != nil {
		return serverError(req.Action, err)
	}
	return http.StatusOK, ReplyResponse{Response: &reply}
}

func (h *Handler) playTTS(ctx context.Context, req Request) (int, any) {
	in := ttsRequest{Text: req.Text, LangCode: req.LangCode}
	if err := validator.Struct(in); err != nil {
		return invalid(err)
	}
	audio, err := h.backend.Speak(ctx, in.Text, in.LangCode)
	if errors.Is(err, providers.ErrNoAudio) {
		return http.StatusInternalServerError, ErrorResponse{Error: "No audio data returned by model."}
	}
	if err != nil {
		return serverError(req.Action, err)
	}
	return http.StatusOK, AudioResponse{InlineData: *audio}
}
