// Package providers exchanges OAuth authorization codes with the social login
// providers and normalises what they return into an OAuthUser.
package providers

import (
	"context"
	"sort"
	"strings"

	"github.com/jrsteele09/go-social-server/internal/config"
	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
	"github.com/pkg/errors"
)

// OAuthUser is the provider-neutral identity returned by a successful exchange.
type OAuthUser struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
}

// FlowParams are generated per login attempt and must be presented again on exchange.
type FlowParams struct {
	Nonce        string
	CodeVerifier string
}

// Verifier is one OAuth provider.
type Verifier interface {
	Name() string
	AuthCodeURL(state string, flow FlowParams) string
	Exchange(ctx context.Context, code string, flow FlowParams) (*OAuthUser, error)
}

// Registry selects a Verifier by provider name.
type Registry struct {
	verifiers map[string]Verifier
}

func NewRegistry(verifiers ...Verifier) *Registry {
	r := &Registry{verifiers: make(map[string]Verifier, len(verifiers))}
	for _, v := range verifiers {
		r.verifiers[v.Name()] = v
	}
	return r
}

// FromConfig registers every provider whose credentials are fully configured.
func FromConfig(cfg config.OAuthConfig) *Registry {
	verifiers := make([]Verifier, 0, 2)
	if creds, ok := cfg.GetProviderCredentials(GoogleProviderName); ok {
		verifiers = append(verifiers, NewGoogle(creds))
	}
	if creds, ok := cfg.GetProviderCredentials(KakaoProviderName); ok {
		verifiers = append(verifiers, NewKakao(creds))
	}
	return NewRegistry(verifiers...)
}

func (r *Registry) Get(name string) (Verifier, error) {
	v, ok := r.verifiers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Wrap(apperrors.ErrUnknownProvider, name)
	}
	return v, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.verifiers))
	for name := range r.verifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
