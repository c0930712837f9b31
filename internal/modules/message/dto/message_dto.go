package dto

import "anoa.com/polychat/internal/entity"

type AIContext struct {
	Topic        string `json:"topic"`
	GrammarFocus string `json:"grammarFocus"`
}

// SendMessageRequest carries the composer input. Text is validated by the
// pipeline so that empty input is reported as a validation error.
type SendMessageRequest struct {
	Text      string    `json:"text"`
	Mode      string    `json:"mode" binding:"omitempty,oneof=english target"`
	AIContext AIContext `json:"aiContext"`
}

type SendMessageResponse struct {
	Message *entity.Message `json:"message"`
	Reply   *entity.Message `json:"reply,omitempty"`
	Warning string          `json:"warning,omitempty"`
}

type HistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

type HistoryResponse struct {
	ChannelID  string           `json:"channelId"`
	Messages   []entity.Message `json:"messages"`
	WindowSize int              `json:"windowSize"`
	AutoScroll bool             `json:"autoScroll"`
}
