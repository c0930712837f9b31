package dto

import "anoa.com/polychat/internal/entity"

type LookupRequest struct {
	Text string `json:"text" binding:"required"`
}

// LookupResponse always carries a displayable definition. Error is set when
// the definition is a fallback for a failed lookup.
type LookupResponse struct {
	Definition string `json:"definition"`
	Error      string `json:"error,omitempty"`
}

type SaveRequest struct {
	Word       string `json:"word" binding:"required,max=200"`
	Definition string `json:"definition"`
	Lang       string `json:"lang"`
}

type ListResponse struct {
	Data []entity.VocabEntry `json:"data"`
}
