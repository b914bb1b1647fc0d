package authflowrepo_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-social-server/auth/authflowrepo"
	"github.com/stretchr/testify/require"
)

func TestConsumeOnce(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := authflowrepo.NewInMemoryRepo(10*time.Minute, func() time.Time { return now })

	require.NoError(t, repo.Upsert("s1", &authflowrepo.AuthFlowState{Provider: "google", Nonce: "n", CodeVerifier: "v", CreatedAt: now}))

	state, err := repo.Consume("s1")
	require.NoError(t, err)
	require.Equal(t, "google", state.Provider)
	require.Equal(t, "n", state.Nonce)
	require.Equal(t, "v", state.CodeVerifier)

	_, err = repo.Consume("s1")
	require.ErrorIs(t, err, authflowrepo.ErrStateNotFound)
}

func TestConsumeExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := authflowrepo.NewInMemoryRepo(10*time.Minute, func() time.Time { return now })
	require.NoError(t, repo.Upsert("s1", &authflowrepo.AuthFlowState{CreatedAt: now}))

	now = now.Add(11 * time.Minute)
	_, err := repo.Consume("s1")
	require.ErrorIs(t, err, authflowrepo.ErrStateNotFound)
}

func TestCleanup(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := authflowrepo.NewInMemoryRepo(time.Minute, func() time.Time { return now })
	require.NoError(t, repo.Upsert("old", &authflowrepo.AuthFlowState{CreatedAt: now}))
	now = now.Add(2 * time.Minute)
	require.NoError(t, repo.Upsert("new", &authflowrepo.AuthFlowState{CreatedAt: now}))

	repo.Cleanup()
	require.Equal(t, 1, repo.Len())
}

func TestUpsertRejectsEmpty(t *testing.T) {
	repo := authflowrepo.NewInMemoryRepo(time.Minute, nil)
	require.Error(t, repo.Upsert("", &authflowrepo.AuthFlowState{}))
	require.Error(t, repo.Upsert("s", nil))
}
