package providers

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-social-server/internal/config"
	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	GoogleProviderName = "google"
	googleIssuer       = "https://accounts.google.com"
	googleJWKSURL      = "https://www.googleapis.com/oauth2/v3/certs"
)

// Google exchanges the code for tokens and reads the identity from the verified ID token.
type Google struct {
	oauth2Config *oauth2.Config
	issuer       string
	keySet       oidc.KeySet
}

type GoogleOption func(*Google)

// WithGoogleEndpoint points the exchange at a different authorization server.
func WithGoogleEndpoint(endpoint oauth2.Endpoint, issuer string) GoogleOption {
	return func(g *Google) {
		g.oauth2Config.Endpoint = endpoint
		g.issuer = issuer
	}
}

// WithGoogleKeySet replaces the remote JWKS used to check ID token signatures.
func WithGoogleKeySet(keySet oidc.KeySet) GoogleOption {
	return func(g *Google) {
		g.keySet = keySet
	}
}

func NewGoogle(creds config.ProviderCredentials, options ...GoogleOption) *Google {
	g := &Google{
		oauth2Config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.CallbackURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		issuer: googleIssuer,
	}
	for _, opt := range options {
		opt(g)
	}
	if g.keySet == nil {
		g.keySet = oidc.NewRemoteKeySet(context.Background(), googleJWKSURL)
	}
	return g
}

var _ Verifier = (*Google)(nil)

func (g *Google) Name() string {
	return GoogleProviderName
}

func (g *Google) AuthCodeURL(state string, flow FlowParams) string {
	return g.oauth2Config.AuthCodeURL(state,
		oidc.Nonce(flow.Nonce),
		oauth2.S256ChallengeOption(flow.CodeVerifier),
	)
}

func (g *Google) Exchange(ctx context.Context, code string, flow FlowParams) (*OAuthUser, error) {
	oauth2Token, err := g.oauth2Config.Exchange(ctx, code, oauth2.VerifierOption(flow.CodeVerifier))
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrUnauthorized, "google token exchange: %v", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrUnauthorized, "google response missing id_token")
	}

	verifier := oidc.NewVerifier(g.issuer, g.keySet, &oidc.Config{ClientID: g.oauth2Config.ClientID})
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrUnauthorized, "google id token: %v", err)
	}

	var claims struct {
		Nonce      string `json:"nonce"`
		Sub        string `json:"sub"`
		Email      string `json:"email"`
		Name       string `json:"name"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "Google.Exchange Claims")
	}
	if claims.Nonce != flow.Nonce {
		return nil, apperrors.Wrapf(apperrors.ErrUnauthorized, "google id token nonce mismatch")
	}

	name := claims.Name
	if claims.FamilyName != "" {
		name = strings.TrimSpace(claims.FamilyName + claims.GivenName)
	}

	return &OAuthUser{
		Provider:   GoogleProviderName,
		ProviderID: claims.Sub,
		Email:      claims.Email,
		Name:       name,
	}, nil
}
