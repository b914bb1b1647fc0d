package authflowrepo

import (
	"time"

	"github.com/pkg/errors"
)

var ErrStateNotFound = errors.New("auth flow state not found")

// AuthFlowState is remembered between redirecting to a provider and its callback.
type AuthFlowState struct {
	Provider     string
	CodeVerifier string
	Nonce        string
	CreatedAt    time.Time
}

type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	// Consume returns the state and removes it. A second call for the same state fails.
	Consume(state string) (*AuthFlowState, error)
	Cleanup()
}
