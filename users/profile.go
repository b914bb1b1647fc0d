package users

import (
	"context"
	"strings"

	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
	"github.com/jrsteele09/go-social-server/internal/utils"
	"github.com/pkg/errors"
)

// resetImageURL is sent by clients to put the default profile image back.
const resetImageURL = " "

// ProfileUpdate is a partial update. Nil or empty fields are left unchanged and an
// empty hashtag list keeps the current set.
type ProfileUpdate struct {
	Nickname *string  `json:"nickname,omitempty"`
	ImageURL *string  `json:"imageUrl,omitempty"`
	Hashtags []string `json:"hashtags,omitempty"`
}

// PublicProfile is what other signed-in users may see. It never carries the email address.
type PublicProfile struct {
	ID       string
	Nickname string
	Name     string
	ImageURL string
	Hashtags []string
}

// ProfileService reads and edits the caller's own profile and serves public lookups of others.
type ProfileService struct {
	repo            UserRepo
	defaultImageURL string
}

func NewProfileService(repo UserRepo, defaultImageURL string) *ProfileService {
	return &ProfileService{repo: repo, defaultImageURL: defaultImageURL}
}

func (ps *ProfileService) Get(ctx context.Context, userID string) (*User, error) {
	user, err := ps.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsDeleted() {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}

// GetPublic looks up another user's profile. Deleted accounts read as not found.
func (ps *ProfileService) GetPublic(ctx context.Context, userID string) (*PublicProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.ErrUserNotFound
	}
	user, err := ps.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &PublicProfile{
		ID:       user.ID,
		Nickname: user.Nickname,
		Name:     user.Name,
		ImageURL: user.ImageURL,
		Hashtags: user.Hashtags,
	}, nil
}

func (ps *ProfileService) Update(ctx context.Context, userID string, update ProfileUpdate) (*User, error) {
	user, err := ps.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if raw, ok := utils.Deref(update.Nickname); ok && raw != "" {
		nickname := strings.TrimSpace(raw)
		if err := ValidateNickname(nickname); err != nil {
			return nil, err
		}
		if nickname != user.Nickname {
			existing, err := ps.repo.GetByNickname(ctx, nickname)
			switch {
			case err == nil && existing.ID != user.ID:
				return nil, ErrNicknameTaken
			case err != nil && !apperrors.Is(err, apperrors.ErrUserNotFound):
				return nil, errors.Wrap(err, "ProfileService.Update GetByNickname")
			}
			user.Nickname = nickname
		}
	}

	if imageURL, ok := utils.Deref(update.ImageURL); ok && imageURL != "" {
		if imageURL == resetImageURL {
			imageURL = ps.defaultImageURL
		}
		user.ImageURL = strings.TrimSpace(imageURL)
	}

	if len(update.Hashtags) > 0 {
		hashtags, err := NormaliseHashtags(update.Hashtags)
		if err != nil {
			return nil, err
		}
		user.Hashtags = hashtags
	}

	if err := ps.repo.Update(ctx, user); err != nil {
		return nil, errors.Wrap(err, "ProfileService.Update")
	}
	return user, nil
}
