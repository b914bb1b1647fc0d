package users

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
)

const (
	ProviderGoogle = "google"
	ProviderKakao  = "kakao"

	nicknameAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	NicknameLength   = 6
	maxNicknameRunes = 30
	maxHashtagRunes  = 50
)

var (
	ErrRefreshTokenMismatch = fmt.Errorf("refresh token mismatch: %w", apperrors.ErrInvalidRefreshToken)
	ErrNicknameTaken        = fmt.Errorf("nickname already in use: %w", apperrors.ErrConflict)
	ErrIdentityExists       = fmt.Errorf("provider identity already registered: %w", apperrors.ErrConflict)
)

// User is a social-login identity. A user is keyed externally by (Provider, ProviderID)
// and internally by ID, which is the subject of every access token.
type User struct {
	ID         string     `json:"id"`
	Provider   string     `json:"provider"`
	ProviderID string     `json:"providerId"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Nickname   string     `json:"nickname"`
	ImageURL   string     `json:"imageUrl"`
	Hashtags   []string   `json:"hashtags"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	DeletedAt  *time.Time `json:"-"`

	// Digest of the single active refresh token. Never serialised.
	RefreshTokenHash      string    `json:"-"`
	RefreshTokenExpiresAt time.Time `json:"-"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// Restore reactivates a soft-deleted account.
func (u *User) Restore() {
	u.DeletedAt = nil
}

// HasRefreshToken reports whether the stored digest matches and is live at now.
func (u *User) HasRefreshToken(tokenHash string, now time.Time) bool {
	return u.RefreshTokenHash != "" && u.RefreshTokenHash == tokenHash && now.Before(u.RefreshTokenExpiresAt)
}

// Clone returns a deep copy so stores never hand out shared state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Hashtags = append([]string(nil), u.Hashtags...)
	if u.DeletedAt != nil {
		deletedAt := *u.DeletedAt
		c.DeletedAt = &deletedAt
	}
	return &c
}

// NormaliseHashtags trims, drops empties and de-duplicates while keeping first-seen order.
func NormaliseHashtags(tags []string) ([]string, error) {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" {
			continue
		}
		if len([]rune(tag)) > maxHashtagRunes {
			return nil, apperrors.Validationf("hashtag %q exceeds %d characters", tag, maxHashtagRunes)
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result, nil
}

// ValidateNickname checks a user supplied nickname.
func ValidateNickname(nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return apperrors.Validationf("nickname must not be empty")
	}
	if len([]rune(nickname)) > maxNicknameRunes {
		return apperrors.Validationf("nickname must be at most %d characters", maxNicknameRunes)
	}
	return nil
}

// GenerateNickname returns a random alphanumeric nickname of NicknameLength characters.
func GenerateNickname() (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(nicknameAlphabet)))
	for i := 0; i < NicknameLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate nickname: %w", err)
		}
		sb.WriteByte(nicknameAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
