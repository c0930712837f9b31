package user

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"anoa.com/polychat/internal/entity"
	"anoa.com/polychat/internal/logging"
	presence "anoa.com/polychat/internal/modules/presence/service"
	search "anoa.com/polychat/internal/modules/search/service"
	"anoa.com/polychat/internal/modules/user/dto"
	"anoa.com/polychat/internal/modules/user/repository"
	"anoa.com/polychat/internal/realtime"
	"anoa.com/polychat/pkg/apperror"
	"anoa.com/polychat/pkg/claim"
	"anoa.com/polychat/pkg/storage"
	"anoa.com/polychat/pkg/textutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	searchLimit   = 20
	joinClaimTTL  = 10 * time.Second
	joinClaimName = "display_name"
)

var ErrNameTaken = apperror.New(http.StatusConflict, "Username taken.", apperror.ErrConflict)

type Service interface {
	Join(ctx context.Context, req dto.JoinRequest) (*dto.AuthResponse, error)
	Me(ctx context.Context, userID string) (*dto.UserResponse, error)
	FindByID(ctx context.Context, userID string) (*entity.User, error)
	Search(ctx context.Context, callerID, query string) ([]dto.UserSummary, error)
	Heartbeat(ctx context.Context, userID string) error
	ResolveDisplayName(ctx context.Context, userID string) (string, error)
	Presence(ctx context.Context, userID string) (*dto.PresenceResponse, error)
	UploadAvatar(ctx context.Context, userID string, file dto.AvatarFile) (*dto.UserResponse, error)
}

type Options struct {
	JWTSecret      string
	TokenTTL       time.Duration
	PresenceWindow time.Duration
	AvatarFolder   string
}

type service struct {
	repo    repository.UserRepository
	broker  realtime.Broker
	redis   *redis.Client
	index   search.UserIndex
	storage storage.ImageStorage
	opts    Options
	now     func() time.Time
	log     zerolog.Logger
}

// NewService wires the user service. redis, index and storage are optional.
func NewService(repo repository.UserRepository, broker realtime.Broker, redisClient *redis.Client, index search.UserIndex, imageStorage storage.ImageStorage, opts Options) Service {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 720 * time.Hour
	}
	if opts.PresenceWindow <= 0 {
		opts.PresenceWindow = presence.Window
	}
	return &service{
		repo:    repo,
		broker:  broker,
		redis:   redisClient,
		index:   index,
		storage: imageStorage,
		opts:    opts,
		now:     time.Now,
		log:     logging.Component("user"),
	}
}

func toResponse(u *entity.User) dto.UserResponse {
	return dto.UserResponse{
		ID:             u.ID,
		DisplayName:    u.DisplayName,
		NativeLang:     u.NativeLang,
		TargetLang:     u.TargetLang,
		TargetLangCode: entity.LanguageCode(u.TargetLang),
		PhotoURL:       u.PhotoURL,
		LastActive:     u.LastActive,
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.ErrNotFound
	}
	return apperror.Persistence("Failed to load user.", err)
}

// Join creates the user and returns a session token. Display names are
// unique by a pre-write existence check; the redis claim only narrows the
// window between check and insert.
func (s *service) Join(ctx context.Context, req dto.JoinRequest) (*dto.AuthResponse, error) {
	name := textutil.Clean(req.DisplayName)
	if name == "" {
		return nil, apperror.Validation("Display name is required.")
	}
	if !entity.IsSupportedLanguage(req.TargetLang) {
		return nil, apperror.Validation("Unsupported language.")
	}

	ok, err := claim.Acquire(ctx, s.redis, joinClaimName, name, joinClaimTTL)
	if err != nil {
		s.log.Warn().Err(err).Msg("join claim unavailable, relying on existence check")
	} else if !ok {
		return nil, ErrNameTaken
	} else {
		defer func() {
			if err := claim.Release(context.WithoutCancel(ctx), s.redis, joinClaimName, name); err != nil {
				s.log.Warn().Err(err).Msg("failed to release join claim")
			}
		}()
	}

	exists, err := s.repo.ExistsByDisplayName(ctx, name)
	if err != nil {
		return nil, apperror.Persistence("Error joining.", err)
	}
	if exists {
		return nil, ErrNameTaken
	}

	user := &entity.User{
		DisplayName: name,
		NativeLang:  entity.English,
		TargetLang:  req.TargetLang,
		PhotoURL:    req.PhotoURL,
	}
	now := s.now()
	user.LastActive = &now
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperror.Persistence("Error joining.", err)
	}

	if s.index != nil {
		if err := s.index.IndexUser(ctx, user); err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to index user")
		}
	}

	return s.buildAuthResponse(user)
}

func (s *service) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	token, err := s.generateToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.opts.TokenTTL.Seconds()),
		User:        toResponse(user),
	}, nil
}

func (s *service) generateToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.opts.JWTSecret))
}

func (s *service) FindByID(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (s *service) Me(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(user)
	return &resp, nil
}

func (s *service) ResolveDisplayName(ctx context.Context, userID string) (string, error) {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.DisplayName, nil
}

// Search is a display-name prefix search that never returns the caller.
func (s *service) Search(ctx context.Context, callerID, query string) ([]dto.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []dto.UserSummary{}, nil
	}

	if s.index != nil {
		docs, err := s.index.SearchUsers(ctx, query, searchLimit+1)
		if err == nil {
			out := make([]dto.UserSummary, 0, len(docs))
			for _, d := range docs {
				if d.ID == callerID || len(out) == searchLimit {
					continue
				}
				summary := dto.UserSummary{ID: d.ID, DisplayName: d.DisplayName, TargetLang: d.TargetLang}
				if d.PhotoURL != "" {
					photo := d.PhotoURL
					summary.PhotoURL = &photo
				}
				out = append(out, summary)
			}
			return out, nil
		}
		s.log.Warn().Err(err).Msg("search index unavailable, falling back to database")
	}

	users, err := s.repo.SearchByPrefix(ctx, query, callerID, searchLimit)
	if err != nil {
		return nil, apperror.Persistence("Failed to search users.", err)
	}
	out := make([]dto.UserSummary, len(users))
	for i, u := range users {
		out[i] = dto.UserSummary{ID: u.ID, DisplayName: u.DisplayName, TargetLang: u.TargetLang, PhotoURL: u.PhotoURL}
	}
	return out, nil
}

// Heartbeat stamps lastActive and pushes the user record to watchers.
func (s *service) Heartbeat(ctx context.Context, userID string) error {
	if err := s.repo.TouchLastActive(ctx, userID, s.now()); err != nil {
		return apperror.Persistence("Failed to update presence.", err)
	}
	return s.publish(ctx, userID)
}

func (s *service) publish(ctx context.Context, userID string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return notFound(err)
	}
	change, err := realtime.NewChange(realtime.Modified, realtime.UserTopic(userID), userID, user)
	if err != nil {
		return err
	}
	return s.broker.Publish(ctx, change)
}

func (s *service) Presence(ctx context.Context, userID string) (*dto.PresenceResponse, error) {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.PresenceResponse{
		UserID:     user.ID,
		Online:     user.LastActive != nil && s.now().Sub(*user.LastActive) < s.opts.PresenceWindow,
		LastActive: user.LastActive,
	}, nil
}

func (s *service) UploadAvatar(ctx context.Context, userID string, file dto.AvatarFile) (*dto.UserResponse, error) {
	if s.storage == nil {
		return nil, apperror.New(http.StatusServiceUnavailable, "Avatar uploads are not configured.", nil)
	}

	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.UploadImage(ctx, file.Reader, s.opts.AvatarFolder, file.FileName)
	if err != nil {
		return nil, apperror.New(http.StatusBadGateway, "Failed to upload avatar.", err)
	}

	if err := s.repo.UpdatePhotoURL(ctx, userID, url); err != nil {
		return nil, apperror.Persistence("Failed to save avatar.", err)
	}

	if user.PhotoURL != nil && *user.PhotoURL != "" {
		if err := s.storage.DeleteImage(ctx, *user.PhotoURL); err != nil {
			s.log.Debug().Err(err).Str("user_id", userID).Msg("old avatar not deleted")
		}
	}

	user.PhotoURL = &url
	if s.index != nil {
		if err := s.index.IndexUser(ctx, user); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to reindex user")
		}
	}
	if err := s.publish(ctx, userID); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish avatar change")
	}

	resp := toResponse(user)
	return &resp, nil
}
