package server

import (
	"encoding/json"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
	"github.com/jrsteele09/go-social-server/users"
)

type profileResponse struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Nickname  string    `json:"nickname"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	ImageURL  string    `json:"imageUrl"`
	Hashtags  []string  `json:"hashtags"`
	CreatedAt time.Time `json:"createdAt"`
}

func newProfileResponse(u *users.User) profileResponse {
	hashtags := u.Hashtags
	if hashtags == nil {
		hashtags = []string{}
	}
	return profileResponse{
		ID:        u.ID,
		Provider:  u.Provider,
		Nickname:  u.Nickname,
		Name:      u.Name,
		Email:     u.Email,
		ImageURL:  u.ImageURL,
		Hashtags:  hashtags,
		CreatedAt: u.CreatedAt,
	}
}

func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityOrError(w, r)
		if !ok {
			return
		}
		user, err := s.profiles.Get(r.Context(), identity.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newProfileResponse(user))
	}
}

type publicProfileResponse struct {
	ID       string   `json:"id"`
	Nickname string   `json:"nickname"`
	Name     string   `json:"name"`
	ImageURL string   `json:"imageUrl"`
	Hashtags []string `json:"hashtags"`
}

// PublicProfileHandler shows another user's profile to any signed-in caller.
func (s *Server) PublicProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := s.profiles.GetPublic(r.Context(), r.PathValue("userId"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		hashtags := profile.Hashtags
		if hashtags == nil {
			hashtags = []string{}
		}
		writeJSON(w, http.StatusOK, publicProfileResponse{
			ID:       profile.ID,
			Nickname: profile.Nickname,
			Name:     profile.Name,
			ImageURL: profile.ImageURL,
			Hashtags: hashtags,
		})
	}
}

func (s *Server) UpdateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityOrError(w, r)
		if !ok {
			return
		}

		var update users.ProfileUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeError(w, r, apperrors.Validationf("invalid request body"))
			return
		}

		user, err := s.profiles.Update(r.Context(), identity.UserID, update)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newProfileResponse(user))
	}
}

func (s *Server) DeleteAccountHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityOrError(w, r)
		if !ok {
			return
		}
		if err := s.auth.DeleteAccount(r.Context(), identity); err != nil {
			writeError(w, r, err)
			return
		}
		s.clearTokenCookies(w, r)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityOrError(w, r)
		if !ok {
			return
		}
		if err := s.auth.Logout(r.Context(), identity); err != nil {
			writeError(w, r, err)
			return
		}
		s.clearTokenCookies(w, r)
		w.WriteHeader(http.StatusNoContent)
	}
}
