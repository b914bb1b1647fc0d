package auth

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
	"github.com/jrsteele09/go-social-server/token"
	"github.com/jrsteele09/go-social-server/users"
	"github.com/pkg/errors"
)

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID   string
	Provider string
	User     *users.User
	Claims   *token.Claims
}

// Authenticate validates an access token and resolves its subject. It never mutates stored state.
func (as *AuthorizationService) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	claims, err := as.tokens.Verify(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := as.repos.Users.GetByID(ctx, claims.Subject)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			return nil, UnknownSubjectErr
		}
		return nil, errors.Wrap(err, "Authenticate GetByID")
	}
	if user.IsDeleted() {
		return nil, UserDeletedErr
	}
	if claims.Provider != "" && claims.Provider != user.Provider {
		return nil, ProviderMismatchErr
	}

	return &Identity{
		UserID:   user.ID,
		Provider: user.Provider,
		User:     user,
		Claims:   claims,
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token stops working
// the moment the exchange succeeds, and of two concurrent exchanges only one succeeds.
func (as *AuthorizationService) Refresh(ctx context.Context, refreshToken string) (*token.TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apperrors.Validationf("refreshToken is required")
	}

	tokenHash := token.HashRefreshToken(refreshToken)
	user, err := as.repos.Users.GetByRefreshToken(ctx, tokenHash)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, errors.Wrap(err, "Refresh GetByRefreshToken")
	}
	if user.IsDeleted() {
		return nil, UserDeletedErr
	}

	if !user.HasRefreshToken(tokenHash, as.nowTime()) {
		// Clear only if nobody rotated it in the meantime.
		err := as.repos.Users.SwapRefreshToken(ctx, user.ID, tokenHash, "", time.Time{})
		if err != nil && !apperrors.Is(err, users.ErrRefreshTokenMismatch) {
			return nil, errors.Wrap(err, "Refresh clear expired")
		}
		return nil, apperrors.ErrRefreshTokenExpired
	}

	pair, err := as.tokens.Rotate(ctx, user.ID, user.Provider, tokenHash)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUnauthorized) {
			return nil, err
		}
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, errors.Wrap(err, "Refresh Rotate")
	}
	return pair, nil
}

// Logout clears the stored refresh token and revokes the presented access token.
func (as *AuthorizationService) Logout(ctx context.Context, identity *Identity) error {
	if identity == nil {
		return apperrors.ErrUnauthorized
	}
	if err := as.repos.Users.ClearRefreshToken(ctx, identity.UserID); err != nil {
		return errors.Wrap(err, "Logout ClearRefreshToken")
	}
	return as.revoke(identity)
}

// DeleteAccount soft-deletes the caller. The next social login with the same identity restores it.
func (as *AuthorizationService) DeleteAccount(ctx context.Context, identity *Identity) error {
	if identity == nil {
		return apperrors.ErrUnauthorized
	}
	if err := as.repos.Users.SoftDelete(ctx, identity.UserID, as.nowTime()); err != nil {
		return errors.Wrap(err, "DeleteAccount SoftDelete")
	}
	return as.revoke(identity)
}

func (as *AuthorizationService) revoke(identity *Identity) error {
	if identity.Claims == nil {
		return nil
	}
	return errors.Wrap(as.tokens.Revoke(identity.Claims), "revoke access token")
}
