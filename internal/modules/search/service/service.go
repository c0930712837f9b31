package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"anoa.com/polychat/internal/entity"
	"anoa.com/polychat/internal/logging"
	"github.com/meilisearch/meilisearch-go"
)

const usersIndex = "users"

// UserDoc is the indexed projection of a user.
type UserDoc struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	TargetLang  string `json:"target_lang"`
	PhotoURL    string `json:"photo_url"`
}

// UserIndex is the user directory used by "find user".
type UserIndex interface {
	IndexUser(ctx context.Context, user *entity.User) error
	// SearchUsers returns users whose display name starts with prefix.
	SearchUsers(ctx context.Context, prefix string, limit int) ([]UserDoc, error)
}

type meiliUserIndex struct {
	client meilisearch.ServiceManager
}

func NewMeiliUserIndex(client meilisearch.ServiceManager) UserIndex {
	s := &meiliUserIndex{client: client}
	s.initIndex()
	return s
}

func (s *meiliUserIndex) initIndex() {
	log := logging.Component("search")

	searchable := []string{"display_name"}
	if _, err := s.client.Index(usersIndex).UpdateSearchableAttributes(&searchable); err != nil {
		log.Warn().Err(err).Msg("failed to update users searchable attributes")
		return
	}
	log.Info().Msg("meilisearch users index initialized")
}

func strPtr(s string) *string {
	return &s
}

func (s *meiliUserIndex) IndexUser(ctx context.Context, user *entity.User) error {
	doc := UserDoc{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		TargetLang:  user.TargetLang,
	}
	if user.PhotoURL != nil {
		doc.PhotoURL = *user.PhotoURL
	}

	task, err := s.client.Index(usersIndex).AddDocuments([]UserDoc{doc}, strPtr("id"))
	if err != nil {
		return fmt.Errorf("failed to index user: %w", err)
	}

	log := logging.FromContext(ctx)
	log.Debug().Str("user_id", user.ID).Int64("task_uid", task.TaskUID).Msg("indexed user")
	return nil
}

func (s *meiliUserIndex) SearchUsers(ctx context.Context, prefix string, limit int) ([]UserDoc, error) {
	raw, err := s.client.Index(usersIndex).SearchRaw(prefix, &meilisearch.SearchRequest{
		Limit: int64(limit) * 2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	var resp struct {
		Hits []UserDoc `json:"hits"`
	}
	if err := json.Unmarshal(*raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode user search: %w", err)
	}

	// meilisearch matches words anywhere; keep the prefix contract of the gorm query
	out := make([]UserDoc, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if strings.HasPrefix(hit.DisplayName, prefix) {
			out = append(out, hit)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
