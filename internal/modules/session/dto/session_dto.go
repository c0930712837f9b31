package dto

type StartDMRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// Frame types pushed to the websocket client.
const (
	FrameChannels = "channels"
	FrameHistory  = "history"
	FramePresence = "presence"
	FrameError    = "error"
)

// Command types accepted from the websocket client.
const (
	CommandOpen     = "open"
	CommandStartDM  = "start_dm"
	CommandDelete   = "delete"
	CommandLoadMore = "load_more"
	CommandResetAI  = "reset_ai"
)

type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type ErrorFrame struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

type Command struct {
	Type      string          `json:"type"`
	ChannelID string          `json:"channelId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
}
