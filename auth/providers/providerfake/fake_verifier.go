package providerfake

import (
	"context"
	"net/url"
	"sync"

	"github.com/jrsteele09/go-social-server/auth/providers"
	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
)

var _ providers.Verifier = (*FakeVerifier)(nil)

// FakeVerifier returns a preset identity for each authorization code.
type FakeVerifier struct {
	name  string
	users map[string]providers.OAuthUser
	flows map[string]providers.FlowParams // code to the flow it was exchanged with
	lock  sync.RWMutex
}

func NewFakeVerifier(name string) *FakeVerifier {
	return &FakeVerifier{
		name:  name,
		users: make(map[string]providers.OAuthUser),
		flows: make(map[string]providers.FlowParams),
	}
}

// AddCode registers the identity returned when code is exchanged.
func (fv *FakeVerifier) AddCode(code string, providerID, email, name string) {
	fv.lock.Lock()
	defer fv.lock.Unlock()
	fv.users[code] = providers.OAuthUser{
		Provider:   fv.name,
		ProviderID: providerID,
		Email:      email,
		Name:       name,
	}
}

// ExchangedWith reports the flow params presented with code.
func (fv *FakeVerifier) ExchangedWith(code string) (providers.FlowParams, bool) {
	fv.lock.RLock()
	defer fv.lock.RUnlock()
	flow, ok := fv.flows[code]
	return flow, ok
}

func (fv *FakeVerifier) Name() string {
	return fv.name
}

func (fv *FakeVerifier) AuthCodeURL(state string, flow providers.FlowParams) string {
	q := url.Values{}
	q.Set("state", state)
	q.Set("nonce", flow.Nonce)
	return "https://provider.test/" + fv.name + "/authorize?" + q.Encode()
}

func (fv *FakeVerifier) Exchange(_ context.Context, code string, flow providers.FlowParams) (*providers.OAuthUser, error) {
	fv.lock.Lock()
	defer fv.lock.Unlock()
	user, ok := fv.users[code]
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrUnauthorized, "unknown authorization code")
	}
	fv.flows[code] = flow
	return &user, nil
}
