package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-social-server/internal/config"
	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	KakaoProviderName   = "kakao"
	kakaoAuthURL        = "https://kauth.kakao.com/oauth/authorize"
	kakaoTokenURL       = "https://kauth.kakao.com/oauth/token"
	kakaoUserProfileURL = "https://kapi.kakao.com/v2/user/me"
)

// Kakao exchanges the code for an access token and fetches the profile from the user API.
type Kakao struct {
	oauth2Config   *oauth2.Config
	userProfileURL string
}

type KakaoOption func(*Kakao)

func WithKakaoEndpoints(endpoint oauth2.Endpoint, userProfileURL string) KakaoOption {
	return func(k *Kakao) {
		k.oauth2Config.Endpoint = endpoint
		k.userProfileURL = userProfileURL
	}
}

func NewKakao(creds config.ProviderCredentials, options ...KakaoOption) *Kakao {
	k := &Kakao{
		oauth2Config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.CallbackURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   kakaoAuthURL,
				TokenURL:  kakaoTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"profile_nickname", "account_email"},
		},
		userProfileURL: kakaoUserProfileURL,
	}
	for _, opt := range options {
		opt(k)
	}
	return k
}

var _ Verifier = (*Kakao)(nil)

func (k *Kakao) Name() string {
	return KakaoProviderName
}

func (k *Kakao) AuthCodeURL(state string, flow FlowParams) string {
	return k.oauth2Config.AuthCodeURL(state, oauth2.S256ChallengeOption(flow.CodeVerifier))
}

type kakaoProfile struct {
	ID         int64 `json:"id"`
	Properties struct {
		Nickname string `json:"nickname"`
	} `json:"properties"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

func (k *Kakao) Exchange(ctx context.Context, code string, flow FlowParams) (*OAuthUser, error) {
	oauth2Token, err := k.oauth2Config.Exchange(ctx, code, oauth2.VerifierOption(flow.CodeVerifier))
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrUnauthorized, "kakao token exchange: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.userProfileURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "Kakao.Exchange NewRequest")
	}
	resp, err := k.oauth2Config.Client(ctx, oauth2Token).Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "Kakao.Exchange user profile")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Wrapf(apperrors.ErrUnauthorized, "kakao user profile: status %d", resp.StatusCode)
	}

	var profile kakaoProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, errors.Wrap(err, "Kakao.Exchange decode profile")
	}
	if profile.ID == 0 {
		return nil, fmt.Errorf("kakao profile missing id: %w", apperrors.ErrUnauthorized)
	}

	name := profile.KakaoAccount.Profile.Nickname
	if name == "" {
		name = profile.Properties.Nickname
	}

	return &OAuthUser{
		Provider:   KakaoProviderName,
		ProviderID: strconv.FormatInt(profile.ID, 10),
		Email:      profile.KakaoAccount.Email,
		Name:       name,
	}, nil
}
