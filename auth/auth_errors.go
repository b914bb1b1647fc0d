package auth

import (
	"fmt"

	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
)

var (
	UnknownSubjectErr    = fmt.Errorf("token subject does not resolve to a user: %w", apperrors.ErrUnauthorized)
	UserDeletedErr       = fmt.Errorf("user account deleted: %w", apperrors.ErrUnauthorized)
	ProviderMismatchErr  = fmt.Errorf("token provider does not match user: %w", apperrors.ErrInvalidToken)
	MissingIdentityErr   = fmt.Errorf("provider returned no identity: %w", apperrors.ErrUnauthorized)
	NicknameExhaustedErr = fmt.Errorf("could not allocate a unique nickname: %w", apperrors.ErrInternal)
)
