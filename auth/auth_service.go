package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/jrsteele09/go-social-server/auth/authflowrepo"
	"github.com/jrsteele09/go-social-server/auth/providers"
	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
	"github.com/jrsteele09/go-social-server/token"
	"github.com/jrsteele09/go-social-server/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	stateLength         = 32
	nonceLength         = 32
	nicknameMaxAttempts = 10
)

// Repos holds all repository dependencies for the AuthorizationService
type Repos struct {
	Users     users.UserRepo    // Credential store
	AuthFlows authflowrepo.Repo // Pending OAuth redirects keyed by state
}

// LoginResult is the outcome of a completed social login.
type LoginResult struct {
	Tokens  *token.TokenPair
	User    *users.User
	Created bool
}

// AuthorizationService runs social login and the access/refresh token lifecycle.
type AuthorizationService struct {
	repos           Repos
	tokens          *token.Manager
	providers       *providers.Registry
	defaultImageURL string
	nowTime         func() time.Time
}

// AuthorizationServiceOption defines a function type to modify the AuthorizationService instance.
type AuthorizationServiceOption func(*AuthorizationService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.nowTime = nowFunc
	}
}

// WithDefaultProfileImage sets the image given to newly created users.
func WithDefaultProfileImage(imageURL string) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.defaultImageURL = imageURL
	}
}

// NewAuthorizationService initializes a new AuthorizationService with required dependencies.
func NewAuthorizationService(
	repos Repos,
	tokens *token.Manager,
	registry *providers.Registry,
	options ...AuthorizationServiceOption,
) (*AuthorizationService, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewAuthorizationService] Users repo is required")
	}
	if repos.AuthFlows == nil {
		return nil, errors.New("[NewAuthorizationService] AuthFlows repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewAuthorizationService] token manager is required")
	}
	if registry == nil {
		registry = providers.NewRegistry()
	}

	authService := &AuthorizationService{
		repos:     repos,
		tokens:    tokens,
		providers: registry,
		nowTime:   time.Now,
	}

	for _, opt := range options {
		opt(authService)
	}

	return authService, nil
}

// BeginLogin records a fresh state for the provider and returns the URL to send the browser to.
func (as *AuthorizationService) BeginLogin(providerName string) (string, error) {
	verifier, err := as.providers.Get(providerName)
	if err != nil {
		return "", err
	}

	state, err := generateRandomString(stateLength)
	if err != nil {
		return "", errors.Wrap(err, "BeginLogin state")
	}
	nonce, err := generateRandomString(nonceLength)
	if err != nil {
		return "", errors.Wrap(err, "BeginLogin nonce")
	}
	flow := providers.FlowParams{
		Nonce:        nonce,
		CodeVerifier: oauth2.GenerateVerifier(),
	}

	if err := as.repos.AuthFlows.Upsert(state, &authflowrepo.AuthFlowState{
		Provider:     verifier.Name(),
		CodeVerifier: flow.CodeVerifier,
		Nonce:        flow.Nonce,
		CreatedAt:    as.nowTime(),
	}); err != nil {
		return "", errors.Wrap(err, "BeginLogin Upsert")
	}

	return verifier.AuthCodeURL(state, flow), nil
}

// CompleteLogin consumes the callback state, exchanges the code with the provider and logs the user in.
func (as *AuthorizationService) CompleteLogin(ctx context.Context, providerName, code, state string) (*LoginResult, error) {
	verifier, err := as.providers.Get(providerName)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, apperrors.Validationf("code is required")
	}

	flowState, err := as.repos.AuthFlows.Consume(state)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidState, "%v", err)
	}
	if flowState.Provider != verifier.Name() {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidState, "state issued for %s", flowState.Provider)
	}

	oauthUser, err := verifier.Exchange(ctx, code, providers.FlowParams{
		Nonce:        flowState.Nonce,
		CodeVerifier: flowState.CodeVerifier,
	})
	if err != nil {
		return nil, err
	}
	return as.SocialLogin(ctx, oauthUser)
}

// SocialLogin finds or creates the user for a provider identity and issues a token pair.
// A soft-deleted account is restored.
func (as *AuthorizationService) SocialLogin(ctx context.Context, oauthUser *providers.OAuthUser) (*LoginResult, error) {
	if oauthUser == nil || oauthUser.Provider == "" || oauthUser.ProviderID == "" {
		return nil, MissingIdentityErr
	}

	created := false
	user, err := as.repos.Users.GetByProvider(ctx, oauthUser.Provider, oauthUser.ProviderID)
	switch {
	case err == nil:
		if user.IsDeleted() {
			user.Restore()
			if err := as.repos.Users.Update(ctx, user); err != nil {
				return nil, errors.Wrap(err, "SocialLogin restore")
			}
			log.Info().Str("userID", user.ID).Msg("restored deleted account on login")
		}
	case apperrors.Is(err, apperrors.ErrUserNotFound):
		user, err = as.createUser(ctx, oauthUser)
		if err != nil {
			return nil, err
		}
		created = true
	default:
		return nil, errors.Wrap(err, "SocialLogin GetByProvider")
	}

	tokens, err := as.tokens.Issue(ctx, user.ID, user.Provider)
	if err != nil {
		return nil, errors.Wrap(err, "SocialLogin Issue")
	}
	return &LoginResult{Tokens: tokens, User: user, Created: created}, nil
}

func (as *AuthorizationService) createUser(ctx context.Context, oauthUser *providers.OAuthUser) (*users.User, error) {
	for attempt := 0; attempt < nicknameMaxAttempts; attempt++ {
		nickname, err := users.GenerateNickname()
		if err != nil {
			return nil, err
		}
		if _, err := as.repos.Users.GetByNickname(ctx, nickname); err == nil {
			continue
		} else if !apperrors.Is(err, apperrors.ErrUserNotFound) {
			return nil, errors.Wrap(err, "createUser GetByNickname")
		}

		user := &users.User{
			Provider:   oauthUser.Provider,
			ProviderID: oauthUser.ProviderID,
			Name:       oauthUser.Name,
			Email:      oauthUser.Email,
			Nickname:   nickname,
			ImageURL:   as.defaultImageURL,
			Hashtags:   []string{},
			CreatedAt:  as.nowTime().UTC(),
		}
		err = as.repos.Users.Create(ctx, user)
		switch {
		case err == nil:
			return user, nil
		case apperrors.Is(err, users.ErrNicknameTaken):
			continue
		case apperrors.Is(err, users.ErrIdentityExists):
			// A concurrent first login created the account.
			return as.repos.Users.GetByProvider(ctx, oauthUser.Provider, oauthUser.ProviderID)
		default:
			return nil, errors.Wrap(err, "createUser Create")
		}
	}
	return nil, NicknameExhaustedErr
}

// CleanupExpired drops revoked access tokens and abandoned OAuth states that have outlived their expiry.
func (as *AuthorizationService) CleanupExpired() {
	if n := as.tokens.CleanupRevokedTokens(); n > 0 {
		log.Debug().Int("count", n).Msg("pruned revoked access tokens")
	}
	as.repos.AuthFlows.Cleanup()
}

func generateRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
