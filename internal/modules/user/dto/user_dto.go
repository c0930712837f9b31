package dto

import (
	"io"
	"time"
)

type JoinRequest struct {
	DisplayName string  `json:"displayName" binding:"required,max=40"`
	TargetLang  string  `json:"targetLang" binding:"required"`
	PhotoURL    *string `json:"photoUrl" binding:"omitempty,url"`
}

type UserResponse struct {
	ID             string     `json:"id"`
	DisplayName    string     `json:"displayName"`
	NativeLang     string     `json:"nativeLang"`
	TargetLang     string     `json:"targetLang"`
	TargetLangCode string     `json:"targetLangCode"`
	PhotoURL       *string    `json:"photoUrl,omitempty"`
	LastActive     *time.Time `json:"lastActive,omitempty"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        UserResponse `json:"user"`
}

type SearchQuery struct {
	Q string `form:"q"`
}

type UserSummary struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	TargetLang  string  `json:"targetLang,omitempty"`
	PhotoURL    *string `json:"photoUrl,omitempty"`
}

type PresenceResponse struct {
	UserID     string     `json:"userId"`
	Online     bool       `json:"online"`
	LastActive *time.Time `json:"lastActive,omitempty"`
}

// AvatarFile is an uploaded profile picture.
type AvatarFile struct {
	Reader   io.Reader
	FileName string
}
