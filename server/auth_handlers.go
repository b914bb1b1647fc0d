package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/go-social-server/auth"
	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
	"github.com/jrsteele09/go-social-server/token"
	"github.com/rs/zerolog/log"
)

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LoginRedirectHandler sends the browser to the provider's consent screen.
func (s *Server) LoginRedirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectURL, err := s.auth.BeginLogin(r.PathValue("provider"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// LoginCallbackHandler completes the provider handoff. The token pair is set as cookies
// and the browser is sent to the home page, or returned as JSON when no home page is configured.
func (s *Server) LoginCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if errorParam := r.FormValue("error"); errorParam != "" {
			writeError(w, r, apperrors.Wrapf(apperrors.ErrUnauthorized, "provider returned %s: %s", errorParam, r.FormValue("error_description")))
			return
		}

		result, err := s.auth.CompleteLogin(r.Context(), r.PathValue("provider"), r.FormValue("code"), r.FormValue("state"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		log.Info().Str("userID", result.User.ID).Str("provider", result.User.Provider).Bool("created", result.Created).Msg("social login")

		homePage := s.config.GetHomePage()
		if homePage == "" {
			writeJSON(w, http.StatusOK, result.Tokens)
			return
		}
		s.setTokenCookies(w, r, result.Tokens)
		http.Redirect(w, r, homePage, http.StatusFound)
	}
}

// RefreshTokenHandler rotates a refresh token into a new token pair.
func (s *Server) RefreshTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, apperrors.Validationf("invalid request body"))
			return
		}

		pair, err := s.auth.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

func (s *Server) setTokenCookies(w http.ResponseWriter, r *http.Request, pair *token.TokenPair) {
	s.setCookie(w, r, AccessTokenCookie, pair.AccessToken, s.config.GetAccessTokenExpiry())
	s.setCookie(w, r, RefreshTokenCookie, pair.RefreshToken, s.config.GetRefreshTokenExpiry())
}

func (s *Server) clearTokenCookies(w http.ResponseWriter, r *http.Request) {
	s.setCookie(w, r, AccessTokenCookie, "", -1)
	s.setCookie(w, r, RefreshTokenCookie, "", -1)
}

func (s *Server) setCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge time.Duration) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: name == RefreshTokenCookie,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		cookie.MaxAge = -1
	} else {
		cookie.MaxAge = int(maxAge.Seconds())
		cookie.Expires = time.Now().Add(maxAge)
	}
	http.SetCookie(w, cookie)
}

func identityOrError(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.ErrUnauthorized)
		return nil, false
	}
	return identity, true
}
