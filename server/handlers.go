package server

import (
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/websocket"
)

// UpHandler is the liveness probe.
func (s *Server) UpHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ChatHandler upgrades to a websocket attached to the relay hub. When relay
// authentication is enabled the upgrade needs a valid access token from the
// Authorization header, the accessToken cookie or the token query parameter.
func (s *Server) ChatHandler() http.HandlerFunc {
	wsHandler := websocket.Handler(s.hub.Serve)
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.GetRelayRequireAuth() {
			accessToken, err := accessTokenFromRequest(r)
			if err != nil {
				accessToken = strings.TrimSpace(r.URL.Query().Get("token"))
			}
			identity, err := s.auth.Authenticate(r.Context(), accessToken)
			if err != nil {
				log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("chat upgrade rejected")
				writeError(w, r, err)
				return
			}
			log.Debug().Str("userID", identity.UserID).Msg("chat upgrade")
		}
		wsHandler.ServeHTTP(w, r)
	}
}

func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, apperrors.ErrNotFound)
	}
}
