package vocab

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"anoa.com/polychat/internal/ai"
	"anoa.com/polychat/internal/entity"
	"anoa.com/polychat/internal/logging"
	"anoa.com/polychat/internal/modules/vocab/dto"
	repo "anoa.com/polychat/internal/modules/vocab/repository"
	"anoa.com/polychat/pkg/apperror"
	"anoa.com/polychat/pkg/textutil"
	"github.com/google/uuid"
)

type Service interface {
	Lookup(ctx context.Context, text string) (*dto.LookupResponse, error)
	Save(ctx context.Context, userID string, req dto.SaveRequest) (*entity.VocabEntry, error)
	List(ctx context.Context, userID string) ([]entity.VocabEntry, error)
	Delete(ctx context.Context, userID, id string) error
}

type service struct {
	repo    repo.Repository
	ai      ai.TextService
	timeout time.Duration
}

func NewService(entries repo.Repository, textService ai.TextService, timeout time.Duration) Service {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &service{repo: entries, ai: textService, timeout: timeout}
}

// Lookup explains text. On failure the response still carries the
// fallback definition alongside the error.
func (s *service) Lookup(ctx context.Context, text string) (*dto.LookupResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.Validation("Nothing to look up.")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	def, err := s.ai.Explain(ctx, text)
	if err != nil {
		log := logging.FromContext(ctx)
		log.Warn().Err(err).Msg("definition lookup failed")
		return &dto.LookupResponse{Definition: ai.DefinitionFailed, Error: "Failed to get definition."}, apperror.Service("Failed to get definition.", err)
	}
	if strings.TrimSpace(def) == "" {
		def = ai.NoDefinition
	}
	return &dto.LookupResponse{Definition: def}, nil
}

func (s *service) Save(ctx context.Context, userID string, req dto.SaveRequest) (*entity.VocabEntry, error) {
	word := textutil.Clean(req.Word)
	if word == "" {
		return nil, apperror.Validation("Word is required.")
	}

	entry := &entity.VocabEntry{
		UserID:     userID,
		Word:       word,
		Definition: textutil.Clean(req.Definition),
		Lang:       req.Lang,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, apperror.Persistence("Failed to save word.", err)
	}
	return entry, nil
}

func (s *service) List(ctx context.Context, userID string) ([]entity.VocabEntry, error) {
	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Persistence("Failed to load notebook.", err)
	}
	if entries == nil {
		entries = []entity.VocabEntry{}
	}
	return entries, nil
}

func (s *service) Delete(ctx context.Context, userID, id string) error {
	entryID, err := uuid.Parse(id)
	if err != nil {
		return apperror.New(http.StatusBadRequest, "Invalid entry id.", apperror.ErrInvalidInput)
	}

	deleted, err := s.repo.Delete(ctx, userID, entryID)
	if err != nil {
		return apperror.Persistence("Failed to delete word.", err)
	}
	if !deleted {
		return fmt.Errorf("vocab entry %s: %w", id, apperror.ErrNotFound)
	}
	return nil
}
