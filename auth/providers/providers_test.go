package providers_test

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-social-server/auth/providers"
	"github.com/jrsteele09/go-social-server/auth/providers/providerfake"
	"github.com/jrsteele09/go-social-server/internal/config"
	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testIssuer = "https://issuer.test"

var testCreds = config.ProviderCredentials{
	ClientID:     "client-id",
	ClientSecret: "client-secret",
	CallbackURL:  "http://localhost:8080/auth/google/callback",
}

type googleFixture struct {
	server *httptest.Server
	key    *rsa.PrivateKey
	idTok  map[string]any
	google *providers.Google
	form   url.Values
}

func newGoogleFixture(t *testing.T) *googleFixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &googleFixture{key: key}
	f.idTok = map[string]any{
		"iss":         testIssuer,
		"aud":         testCreds.ClientID,
		"sub":         "google-123",
		"email":       "gildong@example.com",
		"given_name":  "Gildong",
		"family_name": "Hong",
		"nonce":       "nonce-1",
		"iat":         time.Now().Unix(),
		"exp":         time.Now().Add(time.Hour).Unix(),
	}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.form = r.PostForm
		idToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims(f.idTok)).SignedString(f.key)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "google-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idToken,
		})
	}))
	t.Cleanup(f.server.Close)

	f.google = providers.NewGoogle(testCreds,
		providers.WithGoogleEndpoint(oauth2.Endpoint{
			AuthURL:   f.server.URL + "/auth",
			TokenURL:  f.server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}, testIssuer),
		providers.WithGoogleKeySet(&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}),
	)
	return f
}

func TestGoogleAuthCodeURL(t *testing.T) {
	g := providers.NewGoogle(testCreds)
	raw := g.AuthCodeURL("state-1", providers.FlowParams{Nonce: "nonce-1", CodeVerifier: oauth2.GenerateVerifier()})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, "accounts.google.com", u.Host)
	require.Equal(t, "state-1", q.Get("state"))
	require.Equal(t, "nonce-1", q.Get("nonce"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(t, q.Get("code_challenge"))
	require.Equal(t, testCreds.ClientID, q.Get("client_id"))
}

func TestGoogleExchange(t *testing.T) {
	f := newGoogleFixture(t)

	user, err := f.google.Exchange(t.Context(), "code-1", providers.FlowParams{Nonce: "nonce-1", CodeVerifier: "verifier-1"})
	require.NoError(t, err)
	require.Equal(t, providers.GoogleProviderName, user.Provider)
	require.Equal(t, "google-123", user.ProviderID)
	require.Equal(t, "gildong@example.com", user.Email)
	require.Equal(t, "HongGildong", user.Name)
	require.Equal(t, "verifier-1", f.form.Get("code_verifier"))
	require.Equal(t, "code-1", f.form.Get("code"))
}

func TestGoogleExchangeNonceMismatch(t *testing.T) {
	f := newGoogleFixture(t)

	_, err := f.google.Exchange(t.Context(), "code-1", providers.FlowParams{Nonce: "other", CodeVerifier: "v"})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestGoogleExchangeWrongAudience(t *testing.T) {
	f := newGoogleFixture(t)
	f.idTok["aud"] = "someone-else"

	_, err := f.google.Exchange(t.Context(), "code-1", providers.FlowParams{Nonce: "nonce-1", CodeVerifier: "v"})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestKakaoExchange(t *testing.T) {
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/oauth/token":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "kakao-access",
				"token_type":   "bearer",
				"expires_in":   3600,
			})
		case "/v2/user/me":
			authHeader = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"id":987654321,"properties":{"nickname":"prop"},"kakao_account":{"email":"k@example.com","profile":{"nickname":"Kim"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	k := providers.NewKakao(testCreds, providers.WithKakaoEndpoints(oauth2.Endpoint{
		AuthURL:   server.URL + "/oauth/authorize",
		TokenURL:  server.URL + "/oauth/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}, server.URL+"/v2/user/me"))

	user, err := k.Exchange(t.Context(), "code", providers.FlowParams{CodeVerifier: "v"})
	require.NoError(t, err)
	require.Equal(t, "Bearer kakao-access", authHeader)
	require.Equal(t, providers.KakaoProviderName, user.Provider)
	require.Equal(t, "987654321", user.ProviderID)
	require.Equal(t, "k@example.com", user.Email)
	require.Equal(t, "Kim", user.Name)
}

func TestKakaoExchangeProfileRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"a","token_type":"bearer"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	k := providers.NewKakao(testCreds, providers.WithKakaoEndpoints(oauth2.Endpoint{
		TokenURL:  server.URL + "/oauth/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}, server.URL+"/v2/user/me"))

	_, err := k.Exchange(t.Context(), "code", providers.FlowParams{})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRegistry(t *testing.T) {
	registry := providers.NewRegistry(providerfake.NewFakeVerifier("google"), providerfake.NewFakeVerifier("kakao"))

	v, err := registry.Get(" Kakao ")
	require.NoError(t, err)
	require.Equal(t, "kakao", v.Name())
	require.Equal(t, []string{"google", "kakao"}, registry.Names())

	_, err = registry.Get("github")
	require.ErrorIs(t, err, apperrors.ErrUnknownProvider)
}

func TestRegistryFromConfigSkipsUnconfigured(t *testing.T) {
	registry := providers.FromConfig(config.OAuth{Google: testCreds})
	require.Equal(t, []string{"google"}, registry.Names())
}

