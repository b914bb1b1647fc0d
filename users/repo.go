package users

import (
	"context"
	"time"
)

// UserRepo is the credential store. Lookups return users whether or not they are
// soft-deleted; callers decide what a deleted account means for them.
type UserRepo interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByProvider(ctx context.Context, provider, providerID string) (*User, error)
	GetByNickname(ctx context.Context, nickname string) (*User, error)
	GetByRefreshToken(ctx context.Context, tokenHash string) (*User, error)

	// SetRefreshToken overwrites whatever refresh token the user holds.
	SetRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	// SwapRefreshToken replaces the stored digest only if it still equals oldHash,
	// otherwise it fails with ErrRefreshTokenMismatch.
	SwapRefreshToken(ctx context.Context, userID, oldHash, newHash string, expiresAt time.Time) error
	ClearRefreshToken(ctx context.Context, userID string) error
	SoftDelete(ctx context.Context, userID string, at time.Time) error
}
