package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storageBuilder returns an empty store for one test case.
type storageBuilder func(t *testing.T) Storage

// runStorageSuite checks the behaviour every Storage implementation shares.
func runStorageSuite(t *testing.T, newStore storageBuilder) {
	ctx := context.Background()

	t.Run("AddUser then GetUser", func(t *testing.T) {
		store := newStore(t)
		usr := &User{Name: "Ned Stark", Email: "ned@stark.com", HashedPassword: "hash", IsAdmin: true}

		require.NoError(t, store.AddUser(ctx, usr))

		found, err := store.GetUser(ctx, "ned@stark.com")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "ned@stark.com", found.Email)
		assert.Equal(t, "Ned Stark", found.Name)
		assert.Equal(t, "hash", found.HashedPassword)
		assert.True(t, found.IsAdmin)
	})

	t.Run("AddUser rejects a duplicate email", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.AddUser(ctx, &User{Name: "Ned", Email: "ned@stark.com"}))

		err := store.AddUser(ctx, &User{Name: "Eddard", Email: "ned@stark.com"})

		require.Error(t, err)
		assert.True(t, IsPersistenceError(err))
		assert.True(t, IsDuplicateUser(err))

		found, _ := store.GetUser(ctx, "ned@stark.com")
		require.NotNil(t, found)
		assert.Equal(t, "Ned", found.Name)
	})

	t.Run("AddUser rejects a user without email", func(t *testing.T) {
		store := newStore(t)

		err := store.AddUser(ctx, &User{Name: "Hodor"})

		assert.True(t, IsPersistenceError(err))
		assert.ErrorIs(t, err, ErrMissingUserDetails)
	})

	t.Run("GetUser of an unknown email is absent, not an error", func(t *testing.T) {
		store := newStore(t)

		found, err := store.GetUser(ctx, "nobody@stark.com")

		assert.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("CreateUserSession then GetUserSession", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.CreateUserSession(ctx, "ned@stark.com", "token-1"))

		session, err := store.GetUserSession(ctx, "ned@stark.com")
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "ned@stark.com", session.UserId)
		assert.Equal(t, "token-1", session.Jwt)
	})

	t.Run("CreateUserSession replaces the previous session", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.CreateUserSession(ctx, "ned@stark.com", "token-1"))
		require.NoError(t, store.CreateUserSession(ctx, "ned@stark.com", "token-2"))

		session, err := store.GetUserSession(ctx, "ned@stark.com")
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "token-2", session.Jwt)

		// exactly one session was left behind
		assert.True(t, store.DeleteUserSessions(ctx, "ned@stark.com"))
		session, err = store.GetUserSession(ctx, "ned@stark.com")
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("CreateUserSession leaves other users alone", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.CreateUserSession(ctx, "ned@stark.com", "token-ned"))
		require.NoError(t, store.CreateUserSession(ctx, "arya@stark.com", "token-arya"))

		session, err := store.GetUserSession(ctx, "ned@stark.com")
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "token-ned", session.Jwt)
	})

	t.Run("CreateUserSession requires a user id and a token", func(t *testing.T) {
		store := newStore(t)

		assert.ErrorIs(t, store.CreateUserSession(ctx, "", "token-1"), ErrMissingSessionDetails)
		assert.ErrorIs(t, store.CreateUserSession(ctx, "ned@stark.com", ""), ErrMissingSessionDetails)
	})

	t.Run("GetUserSession of an unknown user is absent, not an error", func(t *testing.T) {
		store := newStore(t)

		session, err := store.GetUserSession(ctx, "nobody@stark.com")

		assert.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("DeleteUserSessions without sessions has no effect", func(t *testing.T) {
		store := newStore(t)

		assert.False(t, store.DeleteUserSessions(ctx, "ned@stark.com"))
	})

	t.Run("DeleteUser removes the user and its sessions", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.AddUser(ctx, &User{Name: "Ned", Email: "ned@stark.com"}))
		require.NoError(t, store.CreateUserSession(ctx, "ned@stark.com", "token-1"))

		assert.True(t, store.DeleteUser(ctx, "ned@stark.com"))

		found, err := store.GetUser(ctx, "ned@stark.com")
		assert.NoError(t, err)
		assert.Nil(t, found)
		session, err := store.GetUserSession(ctx, "ned@stark.com")
		assert.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("DeleteUser twice is safe", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.AddUser(ctx, &User{Name: "Ned", Email: "ned@stark.com"}))

		assert.True(t, store.DeleteUser(ctx, "ned@stark.com"))
		assert.False(t, store.DeleteUser(ctx, "ned@stark.com"))
	})

	t.Run("UpdateUserPreferences replaces instead of merging", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.AddUser(ctx, &User{Name: "Ned", Email: "ned@stark.com"}))

		updated, err := store.UpdateUserPreferences(ctx, "ned@stark.com", Preferences{"a": "1"})
		require.NoError(t, err)
		assert.True(t, updated)

		updated, err = store.UpdateUserPreferences(ctx, "ned@stark.com", Preferences{"b": "2"})
		require.NoError(t, err)
		assert.True(t, updated)

		found, err := store.GetUser(ctx, "ned@stark.com")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, Preferences{"b": "2"}, found.Preferences)
	})

	t.Run("UpdateUserPreferences with identical preferences reports no change", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.AddUser(ctx, &User{Name: "Ned", Email: "ned@stark.com"}))

		_, err := store.UpdateUserPreferences(ctx, "ned@stark.com", Preferences{"genre": "western"})
		require.NoError(t, err)

		updated, err := store.UpdateUserPreferences(ctx, "ned@stark.com", Preferences{"genre": "western"})
		require.NoError(t, err)
		assert.False(t, updated)
	})

	t.Run("UpdateUserPreferences with identical preferences of many keys reports no change", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.AddUser(ctx, &User{Name: "Ned", Email: "ned@stark.com"}))
		prefs := func() Preferences {
			return Preferences{
				"genre":     "western",
				"subtitles": "fr",
				"layout":    "grid",
				"autoplay":  "off",
				"quality":   "hd",
				"theme":     "dark",
			}
		}

		updated, err := store.UpdateUserPreferences(ctx, "ned@stark.com", prefs())
		require.NoError(t, err)
		require.True(t, updated)

		for i := 0; i < 10; i++ {
			updated, err = store.UpdateUserPreferences(ctx, "ned@stark.com", prefs())
			require.NoError(t, err)
			assert.False(t, updated, "attempt %d", i)
		}
	})

	t.Run("UpdateUserPreferences with an empty mapping on a new user", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.AddUser(ctx, &User{Name: "Ned", Email: "ned@stark.com", Preferences: Preferences{}}))

		updated, err := store.UpdateUserPreferences(ctx, "ned@stark.com", Preferences{})
		require.NoError(t, err)
		assert.True(t, updated)

		updated, err = store.UpdateUserPreferences(ctx, "ned@stark.com", Preferences{})
		require.NoError(t, err)
		assert.False(t, updated)
	})

	t.Run("UpdateUserPreferences accepts an empty mapping", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.AddUser(ctx, &User{Name: "Ned", Email: "ned@stark.com", Preferences: Preferences{"genre": "western"}}))

		updated, err := store.UpdateUserPreferences(ctx, "ned@stark.com", Preferences{})
		require.NoError(t, err)
		assert.True(t, updated)

		found, _ := store.GetUser(ctx, "ned@stark.com")
		require.NotNil(t, found)
		assert.Empty(t, found.Preferences)
	})

	t.Run("UpdateUserPreferences upserts an unknown user", func(t *testing.T) {
		store := newStore(t)

		updated, err := store.UpdateUserPreferences(ctx, "ghost@stark.com", Preferences{"genre": "horror"})
		require.NoError(t, err)
		assert.True(t, updated)

		found, err := store.GetUser(ctx, "ghost@stark.com")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, Preferences{"genre": "horror"}, found.Preferences)
	})

	t.Run("UpdateUserPreferences rejects nil preferences", func(t *testing.T) {
		store := newStore(t)

		updated, err := store.UpdateUserPreferences(ctx, "ned@stark.com", nil)

		assert.False(t, updated)
		assert.True(t, IsPersistenceError(err))
		assert.ErrorIs(t, err, ErrPreferencesRequired)
	})
}
