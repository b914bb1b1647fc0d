package fakeuserrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
	"github.com/jrsteele09/go-social-server/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users       map[string]*users.User
	providerIDs map[string]string // provider|providerID to user id
	nicknames   map[string]string // nickname to user id
	refreshIDs  map[string]string // refresh token hash to user id
	lock        sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:       make(map[string]*users.User),
		providerIDs: make(map[string]string),
		nicknames:   make(map[string]string),
		refreshIDs:  make(map[string]string),
	}
}

func providerKey(provider, providerID string) string {
	return provider + "|" + providerID
}

func (ur *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.providerIDs[providerKey(user.Provider, user.ProviderID)]; ok {
		return users.ErrIdentityExists
	}
	if _, ok := ur.nicknames[user.Nickname]; ok {
		return users.ErrNicknameTaken
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	stored := user.Clone()
	ur.users[stored.ID] = stored
	ur.providerIDs[providerKey(stored.Provider, stored.ProviderID)] = stored.ID
	ur.nicknames[stored.Nickname] = stored.ID
	if stored.RefreshTokenHash != "" {
		ur.refreshIDs[stored.RefreshTokenHash] = stored.ID
	}
	return nil
}

func (ur *FakeUserRepo) Update(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	existing, ok := ur.users[user.ID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	if ownerID, taken := ur.nicknames[user.Nickname]; taken && ownerID != user.ID {
		return users.ErrNicknameTaken
	}

	delete(ur.nicknames, existing.Nickname)
	existing.Name = user.Name
	existing.Email = user.Email
	existing.Nickname = user.Nickname
	existing.ImageURL = user.ImageURL
	existing.Hashtags = append([]string(nil), user.Hashtags...)
	existing.DeletedAt = user.Clone().DeletedAt
	existing.UpdatedAt = time.Now().UTC()
	ur.nicknames[existing.Nickname] = existing.ID

	user.UpdatedAt = existing.UpdatedAt
	return nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return user.Clone(), nil
}

func (ur *FakeUserRepo) GetByProvider(ctx context.Context, provider, providerID string) (*users.User, error) {
	ur.lock.RLock()
	id, ok := ur.providerIDs[providerKey(provider, providerID)]
	ur.lock.RUnlock()
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return ur.GetByID(ctx, id)
}

func (ur *FakeUserRepo) GetByNickname(ctx context.Context, nickname string) (*users.User, error) {
	ur.lock.RLock()
	id, ok := ur.nicknames[nickname]
	ur.lock.RUnlock()
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return ur.GetByID(ctx, id)
}

func (ur *FakeUserRepo) GetByRefreshToken(ctx context.Context, tokenHash string) (*users.User, error) {
	ur.lock.RLock()
	id, ok := ur.refreshIDs[tokenHash]
	ur.lock.RUnlock()
	if !ok || tokenHash == "" {
		return nil, apperrors.ErrUserNotFound
	}
	return ur.GetByID(ctx, id)
}

func (ur *FakeUserRepo) SetRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	ur.storeRefreshToken(user, tokenHash, expiresAt)
	return nil
}

func (ur *FakeUserRepo) SwapRefreshToken(_ context.Context, userID, oldHash, newHash string, expiresAt time.Time) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	if oldHash == "" || user.RefreshTokenHash != oldHash {
		return users.ErrRefreshTokenMismatch
	}
	ur.storeRefreshToken(user, newHash, expiresAt)
	return nil
}

func (ur *FakeUserRepo) ClearRefreshToken(_ context.Context, userID string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	ur.storeRefreshToken(user, "", time.Time{})
	return nil
}

func (ur *FakeUserRepo) SoftDelete(_ context.Context, userID string, at time.Time) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	deletedAt := at.UTC()
	user.DeletedAt = &deletedAt
	ur.storeRefreshToken(user, "", time.Time{})
	return nil
}

// storeRefreshToken must be called with the write lock held.
func (ur *FakeUserRepo) storeRefreshToken(user *users.User, tokenHash string, expiresAt time.Time) {
	if user.RefreshTokenHash != "" {
		delete(ur.refreshIDs, user.RefreshTokenHash)
	}
	user.RefreshTokenHash = tokenHash
	user.RefreshTokenExpiresAt = expiresAt
	if tokenHash != "" {
		ur.refreshIDs[tokenHash] = user.ID
	}
}
