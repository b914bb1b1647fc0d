package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
	"github.com/jrsteele09/go-social-server/users"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

const (
	defaultAccessTokenExpiry  = time.Hour
	defaultRefreshTokenExpiry = 72 * time.Hour
	defaultRefreshTokenLength = 32 // 32 bytes = 256 bits
)

// TokenPair is what a successful login or refresh hands back to the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Claims carried by an access token. Subject is the internal user id.
type Claims struct {
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

type Manager struct {
	repo               users.UserRepo    // Where the single active refresh token lives
	signer             Signer            // Access token signing and verification
	denylist           Denylist          // Access tokens revoked before expiry
	issuer             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	refreshTokenLength int
	nowFunc            func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry time.Duration, refreshTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
		m.refreshTokenExpiry = refreshTokenExpiry
	}
}

func WithRefreshTokenLength(length int) ManagerOption {
	return func(m *Manager) {
		m.refreshTokenLength = length
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithDenylist(d Denylist) ManagerOption {
	return func(m *Manager) {
		m.denylist = d
	}
}

func New(repo users.UserRepo, signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:   repo,
		signer: signer,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry <= 0 {
		m.accessTokenExpiry = defaultAccessTokenExpiry
	}
	if m.refreshTokenExpiry <= 0 {
		m.refreshTokenExpiry = defaultRefreshTokenExpiry
	}
	if m.refreshTokenLength <= 0 {
		m.refreshTokenLength = defaultRefreshTokenLength
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	if m.denylist == nil {
		m.denylist = NewMemoryDenylist(m.nowFunc)
	}
	return m
}

func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

func (m *Manager) RefreshTokenExpiry() time.Duration {
	return m.refreshTokenExpiry
}

func (m *Manager) Now() time.Time {
	return m.nowFunc()
}

// Issue mints a new token pair for the user and overwrites any refresh token they held.
func (m *Manager) Issue(ctx context.Context, userID, provider string) (*TokenPair, error) {
	pair, refreshHash, expiresAt, err := m.mint(userID, provider)
	if err != nil {
		return nil, err
	}
	if err := m.repo.SetRefreshToken(ctx, userID, refreshHash, expiresAt); err != nil {
		return nil, errors.Wrap(err, "Manager.Issue SetRefreshToken")
	}
	return pair, nil
}

// Rotate mints a new pair and stores its refresh token only if the user still holds
// previousHash. A caller that loses the race gets users.ErrRefreshTokenMismatch and
// the pair it minted is discarded.
func (m *Manager) Rotate(ctx context.Context, userID, provider, previousHash string) (*TokenPair, error) {
	pair, refreshHash, expiresAt, err := m.mint(userID, provider)
	if err != nil {
		return nil, err
	}
	if err := m.repo.SwapRefreshToken(ctx, userID, previousHash, refreshHash, expiresAt); err != nil {
		return nil, errors.Wrap(err, "Manager.Rotate SwapRefreshToken")
	}
	return pair, nil
}

// Verify checks signature, expiry and revocation of an access token.
func (m *Manager) Verify(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(rawToken, claims, m.signer.Keyfunc,
		jwt.WithValidMethods([]string{m.signer.Alg()}),
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "%v", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, apperrors.ErrInvalidToken
	}
	if claims.ID != "" && m.denylist.Contains(claims.ID) {
		return nil, apperrors.ErrTokenRevoked
	}
	return claims, nil
}

// Revoke blocks an access token until it would have expired anyway.
func (m *Manager) Revoke(claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return errors.New("token missing jti claim")
	}
	if claims.ExpiresAt == nil {
		return errors.New("token missing exp claim")
	}
	m.denylist.Revoke(claims.ID, claims.ExpiresAt.Time)
	return nil
}

// CleanupRevokedTokens forgets revoked ids whose tokens have expired.
func (m *Manager) CleanupRevokedTokens() int {
	return m.denylist.Prune()
}

func (m *Manager) mint(userID, provider string) (*TokenPair, string, time.Time, error) {
	now := m.nowFunc()
	accessToken, err := m.signer.Sign(Claims{
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenExpiry)),
			ID:        uuid.NewString(),
		},
	})
	if err != nil {
		return nil, "", time.Time{}, errors.Wrap(err, "Manager.mint Sign")
	}

	tokenBytes := make([]byte, m.refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, "", time.Time{}, errors.Wrap(err, "Manager.mint rand.Read")
	}
	refreshToken := hex.EncodeToString(tokenBytes)

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, HashRefreshToken(refreshToken), now.Add(m.refreshTokenExpiry), nil
}

// HashRefreshToken is the digest stored in place of the opaque refresh token.
func HashRefreshToken(refreshToken string) string {
	sum := sha3.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}
