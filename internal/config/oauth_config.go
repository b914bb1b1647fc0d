package config

import "time"

const insecureDevSecret = "dev_insecure_change_me"

type OAuthConfig interface {
	GetAccessTokenSecret() string
	UsesInsecureSecret() bool
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
	GetOAuthStateTimeout() time.Duration
	GetDefaultProfileImageURL() string
	GetProviderCredentials(provider string) (ProviderCredentials, bool)
}

// ProviderCredentials are the client registration values for one OAuth provider.
type ProviderCredentials struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	CallbackURL  string `env:"CALLBACK_URL"`
}

func (p ProviderCredentials) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != "" && p.CallbackURL != ""
}

type OAuth struct {
	AccessSecret           string              `env:"JWT_ACCESS_SECRET" envDefault:"dev_insecure_change_me"`
	AccessTokenTTL         time.Duration       `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL        time.Duration       `env:"REFRESH_TOKEN_TTL" envDefault:"72h"`
	RefreshTokenLength     int                 `env:"REFRESH_TOKEN_LENGTH" envDefault:"32"`
	StateTTL               time.Duration       `env:"OAUTH_STATE_TTL" envDefault:"10m"`
	DefaultProfileImageURL string              `env:"DEFAULT_PROFILE_IMAGE_URL"`
	Google                 ProviderCredentials `envPrefix:"GOOGLE_"`
	Kakao                  ProviderCredentials `envPrefix:"KAKAO_"`
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetAccessTokenSecret() string {
	return o.AccessSecret
}

func (o OAuth) UsesInsecureSecret() bool {
	return o.AccessSecret == insecureDevSecret
}

func (o OAuth) GetAccessTokenExpiry() time.Duration {
	return o.AccessTokenTTL
}

func (o OAuth) GetRefreshTokenExpiry() time.Duration {
	return o.RefreshTokenTTL
}

func (o OAuth) GetRefreshTokenLength() int {
	return o.RefreshTokenLength // bytes of entropy before hex encoding
}

func (o OAuth) GetOAuthStateTimeout() time.Duration {
	return o.StateTTL
}

func (o OAuth) GetDefaultProfileImageURL() string {
	return o.DefaultProfileImageURL
}

func (o OAuth) GetProviderCredentials(provider string) (ProviderCredentials, bool) {
	var creds ProviderCredentials
	switch provider {
	case "google":
		creds = o.Google
	case "kakao":
		creds = o.Kakao
	default:
		return ProviderCredentials{}, false
	}
	return creds, creds.Configured()
}
