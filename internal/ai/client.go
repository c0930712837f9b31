package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client calls a remote proxy. On failure each method returns the same
// fallback value the browser client showed, together with the error.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) call(ctx context.Context, req Request, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", req.Action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error != "" {
			return fmt.Errorf("%s: HTTP error! status: %d: %s", req.Action, resp.StatusCode, e.Error)
		}
		return fmt.Errorf("%s: HTTP error! status: %d", req.Action, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: invalid response: %w", req.Action, err)
	}
	return nil
}

func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	var out TranslateResponse
	if err := c.call(ctx, Request{Action: ActionTranslate, Text: text, TargetLang: targetLang}, &out); err != nil {
		return text, err
	}
	if out.TranslatedText == "" {
		return text, nil
	}
	return out.TranslatedText, nil
}

func (c *Client) Explain(ctx context.Context, text string) (string, error) {
	var out ExplainResponse
	if err := c.call(ctx, Request{Action: ActionExplain, Text: text}, &out); err != nil {
		return DefinitionFailed, err
	}
	if out.Definition == "" {
		return NoDefinition, nil
	}
	return out.Definition, nil
}

func (c *Client) CheckGrammar(ctx context.Context, text, lang string) (GrammarResult, error) {
	var out GrammarResult
	if err := c.call(ctx, Request{Action: ActionCheckGrammar, Text: text, Lang: lang}, &out); err != nil {
		return GrammarResult{}, err
	}
	return out, nil
}

func (c *Client) GenerateReply(ctx context.Context, in ReplyInput) (Reply, error) {
	var out ReplyResponse
	req := Request{
		Action:   ActionGenerateReply,
		UserText: in.UserText,
		UserName: in.UserName,
		Lang:     in.Lang,
		Context:  in.Context,
	}
	if err := c.call(ctx, req, &out); err != nil {
		return Reply{}, err
	}
	if out.Response == nil {
		return Reply{}, fmt.Errorf("%s: empty response", ActionGenerateReply)
	}
	return *out.Response, nil
}

func (c *Client) Speak(ctx context.Context, text, langCode string) (*InlineData, error) {
	var out AudioResponse
	if err := c.call(ctx, Request{Action: ActionPlayTTS, Text: text, LangCode: langCode}, &out); err != nil {
		return nil, err
	}
	return &out.InlineData, nil
}
