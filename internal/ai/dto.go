package ai

// Action selects the operation of a proxy request.
type Action string

const (
	ActionTranslate     Action = "translate"
	ActionExplain       Action = "explain"
	ActionCheckGrammar  Action = "checkGrammar"
	ActionGenerateReply Action = "generateAIResponse"
	ActionPlayTTS       Action = "playTTS"

	// older clients name the speech action after the model family
	actionPlayGeminiTTS Action = "playGeminiTTS"
)

// Request is the wire body of the proxy. Only the fields of the selected
// action are read.
type Request struct {
	Action     Action `json:"action"`
	Text       string `json:"text,omitempty"`
	TargetLang string `json:"targetLang,omitempty"`
	Lang       string `json:"lang,omitempty"`
	UserText   string `json:"userText,omitempty"`
	UserName   string `json:"userName,omitempty"`
	Context    string `json:"context,omitempty"`
	LangCode   string `json:"langCode,omitempty"`
}

type translateRequest struct {
	Text       string `validate:"required"`
	TargetLang string `validate:"required"`
}

type explainRequest struct {
	Text string `validate:"required"`
}

type grammarRequest struct {
	Text string `validate:"required"`
	Lang string `validate:"required"`
}

type replyRequest struct {
	UserText string `validate:"required"`
	UserName string
	Lang     string `validate:"required"`
	Context  string
}

type ttsRequest struct {
	Text     string `validate:"required"`
	LangCode string `validate:"required"`
}

type TranslateResponse struct {
	TranslatedText string `json:"translatedText"`
}

type ExplainResponse struct {
	Definition string `json:"definition"`
}

// GrammarResult is the outcome of a grammar check. Note is set when the
// model output could not be parsed and the text was assumed correct.
type GrammarResult struct {
	HasError   bool   `json:"hasError"`
	Correction string `json:"correction,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Note       string `json:"note,omitempty"`
}

// Reply is the tutor's answer in English and in the practice language.
type Reply struct {
	English string `json:"english"`
	Target  string `json:"target"`
}

type ReplyResponse struct {
	Response *Reply `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

type InlineData struct {
	MimeType string `json:"mimeType"`
	// Data is base64 encoded.
	Data string `json:"data"`
}

type AudioResponse struct {
	InlineData InlineData `json:"inlineData"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
