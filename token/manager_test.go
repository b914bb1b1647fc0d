package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
	"github.com/jrsteele09/go-social-server/token"
	"github.com/jrsteele09/go-social-server/users"
	fakeuserrepo "github.com/jrsteele09/go-social-server/users/repofake"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testFixture struct {
	now     time.Time
	repo    *fakeuserrepo.FakeUserRepo
	manager *token.Manager
	user    *users.User
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		now:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		repo: fakeuserrepo.NewFakeUserRepo(),
	}
	f.user = &users.User{Provider: users.ProviderGoogle, ProviderID: "g-1", Nickname: "abc123"}
	require.NoError(t, f.repo.Create(context.Background(), f.user))

	f.manager = token.New(f.repo, token.NewHS256Signer(testSecret),
		token.WithNowFunc(func() time.Time { return f.now }),
		token.WithIssuer("social-server"),
	)
	return f
}

func TestIssueAndVerify(t *testing.T) {
	f := newTestFixture(t)

	pair, err := f.manager.Issue(context.Background(), f.user.ID, f.user.Provider)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.Len(t, pair.RefreshToken, 64)

	claims, err := f.manager.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, f.user.ID, claims.Subject)
	require.Equal(t, users.ProviderGoogle, claims.Provider)
	require.Equal(t, "social-server", claims.Issuer)
	require.NotEmpty(t, claims.ID)
	require.Equal(t, f.now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())

	stored, err := f.repo.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Equal(t, token.HashRefreshToken(pair.RefreshToken), stored.RefreshTokenHash)
	require.Equal(t, f.now.Add(72*time.Hour), stored.RefreshTokenExpiresAt)
}

func TestIssueProducesDistinctTokens(t *testing.T) {
	f := newTestFixture(t)

	first, err := f.manager.Issue(context.Background(), f.user.ID, f.user.Provider)
	require.NoError(t, err)
	second, err := f.manager.Issue(context.Background(), f.user.ID, f.user.Provider)
	require.NoError(t, err)

	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.NotEqual(t, first.AccessToken, second.AccessToken)
}

func TestVerifyExpired(t *testing.T) {
	f := newTestFixture(t)
	pair, err := f.manager.Issue(context.Background(), f.user.ID, f.user.Provider)
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour + time.Second)
	_, err = f.manager.Verify(pair.AccessToken)
	require.ErrorIs(t, err, apperrors.ErrTokenExpired)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestVerifyWrongSecret(t *testing.T) {
	f := newTestFixture(t)
	other := token.New(f.repo, token.NewHS256Signer("other-secret"))

	pair, err := other.Issue(context.Background(), f.user.ID, f.user.Provider)
	require.NoError(t, err)

	_, err = f.manager.Verify(pair.AccessToken)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestVerifyRejectsGarbageAndNoneAlg(t *testing.T) {
	f := newTestFixture(t)

	_, err := f.manager.Verify("")
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	_, err = f.manager.Verify("not.a.jwt")
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": f.user.ID,
		"exp": f.now.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = f.manager.Verify(unsigned)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestVerifyRequiresExpiry(t *testing.T) {
	f := newTestFixture(t)
	raw, err := token.NewHS256Signer(testSecret).Sign(jwt.MapClaims{"sub": f.user.ID})
	require.NoError(t, err)

	_, err = f.manager.Verify(raw)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestRevoke(t *testing.T) {
	f := newTestFixture(t)
	pair, err := f.manager.Issue(context.Background(), f.user.ID, f.user.Provider)
	require.NoError(t, err)
	claims, err := f.manager.Verify(pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.manager.Revoke(claims))
	_, err = f.manager.Verify(pair.AccessToken)
	require.ErrorIs(t, err, apperrors.ErrTokenRevoked)

	// Cleanup keeps the entry until the token would have expired anyway.
	require.Zero(t, f.manager.CleanupRevokedTokens())
	_, err = f.manager.Verify(pair.AccessToken)
	require.ErrorIs(t, err, apperrors.ErrTokenRevoked)
}

func TestRotate(t *testing.T) {
	f := newTestFixture(t)
	pair, err := f.manager.Issue(context.Background(), f.user.ID, f.user.Provider)
	require.NoError(t, err)
	oldHash := token.HashRefreshToken(pair.RefreshToken)

	rotated, err := f.manager.Rotate(context.Background(), f.user.ID, f.user.Provider, oldHash)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	_, err = f.manager.Rotate(context.Background(), f.user.ID, f.user.Provider, oldHash)
	require.ErrorIs(t, err, users.ErrRefreshTokenMismatch)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestHashRefreshToken(t *testing.T) {
	require.Equal(t, token.HashRefreshToken("abc"), token.HashRefreshToken("abc"))
	require.NotEqual(t, token.HashRefreshToken("abc"), token.HashRefreshToken("abd"))
	require.Len(t, token.HashRefreshToken("abc"), 64)
}
