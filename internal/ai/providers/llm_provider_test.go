package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type grammar struct {
		HasError   bool   `json:"hasError"`
		Correction string `json:"correction"`
	}

	tests := []struct {
		name    string
		raw     string
		want    grammar
		wantErr bool
	}{
		{"plain", `{"hasError": false}`, grammar{}, false},
		{"fenced", "```json\n{\"hasError\": true, \"correction\": \"Yo tengo\"}\n```", grammar{HasError: true, Correction: "Yo tengo"}, false},
		{"prose around", `Sure! {"hasError": true} hope that helps`, grammar{HasError: true}, false},
		{"garbage", `no json here`, grammar{}, true},
		{"broken", `{"hasError": tru`, grammar{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got grammar
			err := DecodeJSON(tt.raw, &got)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedOutput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "", "", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
