package sqlitestore_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
	"github.com/jrsteele09/go-social-server/users"
	"github.com/jrsteele09/go-social-server/users/sqlitestore"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "social.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func createUser(t *testing.T, store *sqlitestore.Store, providerID, nickname string) *users.User {
	t.Helper()
	user := &users.User{
		Provider:   users.ProviderGoogle,
		ProviderID: providerID,
		Name:       "Tester",
		Email:      providerID + "@example.com",
		Nickname:   nickname,
		ImageURL:   "https://cdn.test/default.png",
		Hashtags:   []string{"go", "sqlite"},
	}
	require.NoError(t, store.Create(context.Background(), user))
	require.NotEmpty(t, user.ID)
	return user
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := sqlitestore.Open(" ")
	require.Error(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "social.db")
	store, err := sqlitestore.Open(path)
	require.NoError(t, err)
	user := createUser(t, store, "g-1", "abc123")
	require.NoError(t, store.Close())

	store, err = sqlitestore.Open(path)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, "abc123", got.Nickname)
}

func TestCreateAndLookups(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	user := createUser(t, store, "g-1", "abc123")

	byID, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, byID.Email)
	require.Equal(t, []string{"go", "sqlite"}, byID.Hashtags)
	require.False(t, byID.IsDeleted())

	byProvider, err := store.GetByProvider(ctx, users.ProviderGoogle, "g-1")
	require.NoError(t, err)
	require.Equal(t, user.ID, byProvider.ID)

	byNickname, err := store.GetByNickname(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, user.ID, byNickname.ID)

	_, err = store.GetByProvider(ctx, users.ProviderKakao, "g-1")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	_, err = store.GetByRefreshToken(ctx, "")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUniqueness(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	createUser(t, store, "g-1", "abc123")

	err := store.Create(ctx, &users.User{Provider: users.ProviderGoogle, ProviderID: "g-2", Nickname: "abc123"})
	require.ErrorIs(t, err, users.ErrNicknameTaken)

	err = store.Create(ctx, &users.User{Provider: users.ProviderGoogle, ProviderID: "g-1", Nickname: "other"})
	require.ErrorIs(t, err, users.ErrIdentityExists)

	second := createUser(t, store, "g-3", "zzz999")
	second.Nickname = "abc123"
	require.ErrorIs(t, store.Update(ctx, second), apperrors.ErrConflict)
}

func TestUpdateReplacesHashtags(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	user := createUser(t, store, "g-1", "abc123")

	user.Nickname = "gopher"
	user.Hashtags = []string{"rust", "go"}
	require.NoError(t, store.Update(ctx, user))

	got, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "gopher", got.Nickname)
	require.Equal(t, []string{"rust", "go"}, got.Hashtags)

	require.ErrorIs(t, store.Update(ctx, &users.User{ID: "missing"}), apperrors.ErrUserNotFound)
}

func TestRefreshTokenCompareAndSwap(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	user := createUser(t, store, "g-1", "abc123")
	expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)

	require.NoError(t, store.SetRefreshToken(ctx, user.ID, "hash-1", expiresAt))
	got, err := store.GetByRefreshToken(ctx, "hash-1")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.True(t, got.RefreshTokenExpiresAt.Equal(expiresAt))

	require.NoError(t, store.SwapRefreshToken(ctx, user.ID, "hash-1", "hash-2", expiresAt))
	require.ErrorIs(t, store.SwapRefreshToken(ctx, user.ID, "hash-1", "hash-3", expiresAt), users.ErrRefreshTokenMismatch)
	require.ErrorIs(t, store.SwapRefreshToken(ctx, "missing", "hash-2", "hash-3", expiresAt), apperrors.ErrUserNotFound)

	_, err = store.GetByRefreshToken(ctx, "hash-1")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)

	require.NoError(t, store.ClearRefreshToken(ctx, user.ID))
	_, err = store.GetByRefreshToken(ctx, "hash-2")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestConcurrentSwapSingleWinner(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	user := createUser(t, store, "g-1", "abc123")
	expiresAt := time.Now().Add(time.Hour)
	require.NoError(t, store.SetRefreshToken(ctx, user.ID, "start", expiresAt))

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- store.SwapRefreshToken(ctx, user.ID, "start", "next-"+string(rune('a'+i)), expiresAt)
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	}
	require.Equal(t, 1, wins)
}

func TestSoftDeleteClearsRefreshToken(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	user := createUser(t, store, "g-1", "abc123")
	require.NoError(t, store.SetRefreshToken(ctx, user.ID, "hash-1", time.Now().Add(time.Hour)))

	require.NoError(t, store.SoftDelete(ctx, user.ID, time.Now()))
	got, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, got.IsDeleted())
	require.Empty(t, got.RefreshTokenHash)

	got.Restore()
	require.NoError(t, store.Update(ctx, got))
	restored, err := store.GetByProvider(ctx, users.ProviderGoogle, "g-1")
	require.NoError(t, err)
	require.False(t, restored.IsDeleted())
}
