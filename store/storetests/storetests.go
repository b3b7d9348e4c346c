// Package storetests provides common acceptance tests for store.Store
// implementations.
package storetests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AustinSDK/Authincation-service/errors"
	"github.com/AustinSDK/Authincation-service/store"
)

func newUser(username string) *store.User {
	return &store.User{
		Username:     username,
		DisplayName:  username,
		Email:        username + "@example.com",
		PasswordHash: "$argon2id$fake$" + username,
		Permissions:  []string{},
	}
}

// Run executes the conformance suite against a fresh store per subtest.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {

	t.Run("TestUserRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		u := newUser("alice")
		u.Permissions = []string{"editor"}
		require.NoError(t, s.CreateUser(ctx, u))
		require.NotZero(t, u.ID)

		got, err := s.UserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, []string{"editor"}, got.Permissions)

		got, err = s.UserByUsername(ctx, "ALICE")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID, "username lookup should be case-insensitive")

		got, err = s.UserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		_, err = s.UserByID(ctx, 999)
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("TestUserUniqueness", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		require.NoError(t, s.CreateUser(ctx, newUser("bob")))

		dup := newUser("BOB")
		dup.Email = "other@example.com"
		err := s.CreateUser(ctx, dup)
		assert.True(t, errors.Is(err, store.ErrAlreadyExists), "duplicate username should conflict: %v", err)

		dup = newUser("carol")
		dup.Email = "bob@example.com"
		err = s.CreateUser(ctx, dup)
		assert.True(t, errors.Is(err, store.ErrAlreadyExists), "duplicate email should conflict: %v", err)
	})

	t.Run("TestUpdateUserPermissions", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		u := newUser("dave")
		require.NoError(t, s.CreateUser(ctx, u))

		require.NoError(t, s.UpdateUserPermissions(ctx, u.ID, []string{"admin", "editor"}))
		got, err := s.UserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"admin", "editor"}, got.Permissions)

		err = s.UpdateUserPermissions(ctx, 999, []string{"editor"})
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("TestResetPasswordPurgesSessions", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		u := newUser("erin")
		require.NoError(t, s.CreateUser(ctx, u))
		require.NoError(t, s.CreateSession(ctx, &store.Session{UserID: u.ID, Token: "tok-1"}))
		require.NoError(t, s.CreateSession(ctx, &store.Session{UserID: u.ID, Token: "tok-2"}))

		require.NoError(t, s.ResetUserPassword(ctx, u.ID, "$argon2id$fake$new"))

		got, err := s.UserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "$argon2id$fake$new", got.PasswordHash)

		sessions, err := s.SessionsByUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, sessions)

		err = s.ResetUserPassword(ctx, 999, "x")
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("TestDeleteUserCascadesSessions", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		u := newUser("frank")
		require.NoError(t, s.CreateUser(ctx, u))
		require.NoError(t, s.CreateSession(ctx, &store.Session{UserID: u.ID, Token: "tok-f"}))

		require.NoError(t, s.DeleteUser(ctx, u.ID))

		_, err := s.UserByID(ctx, u.ID)
		assert.True(t, errors.Is(err, store.ErrNotFound))
		_, err = s.SessionByToken(ctx, "tok-f")
		assert.True(t, errors.Is(err, store.ErrNotFound))

		err = s.DeleteUser(ctx, u.ID)
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("TestSessions", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		u := newUser("grace")
		require.NoError(t, s.CreateUser(ctx, u))

		first := &store.Session{UserID: u.ID, Token: "tok-a"}
		second := &store.Session{UserID: u.ID, Token: "tok-b"}
		require.NoError(t, s.CreateSession(ctx, first))
		require.NoError(t, s.CreateSession(ctx, second))

		got, err := s.SessionByToken(ctx, "tok-a")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, u.ID, got.UserID)

		got, err = s.SessionByID(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, "tok-b", got.Token)

		sessions, err := s.SessionsByUser(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, first.ID, sessions[0].ID, "sessions should list in creation order")

		require.NoError(t, s.DeleteSession(ctx, first.ID))
		err = s.DeleteSession(ctx, first.ID)
		assert.True(t, errors.Is(err, store.ErrNotFound))

		dup := &store.Session{UserID: u.ID, Token: "tok-b"}
		err = s.CreateSession(ctx, dup)
		assert.True(t, errors.Is(err, store.ErrAlreadyExists))
	})

	t.Run("TestProjects", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		p1 := &store.Project{Name: "alpha", Description: "first", Link: "https://a.test", RequiredTags: []string{"editor"}}
		p2 := &store.Project{Name: "beta", RequiredTags: []string{}}
		require.NoError(t, s.CreateProject(ctx, p1))
		require.NoError(t, s.CreateProject(ctx, p2))

		err := s.CreateProject(ctx, &store.Project{Name: "alpha"})
		assert.True(t, errors.Is(err, store.ErrAlreadyExists))

		projects, err := s.ListProjects(ctx)
		require.NoError(t, err)
		require.Len(t, projects, 2)
		assert.Equal(t, "alpha", projects[0].Name)
		assert.Equal(t, []string{"editor"}, projects[0].RequiredTags)
		assert.Equal(t, "beta", projects[1].Name)

		// Renaming onto another project's name conflicts; keeping your own
		// name does not.
		p2.Name = "alpha"
		err = s.UpdateProject(ctx, p2)
		assert.True(t, errors.Is(err, store.ErrAlreadyExists))

		p1.Description = "updated"
		require.NoError(t, s.UpdateProject(ctx, p1))
		got, err := s.ProjectByID(ctx, p1.ID)
		require.NoError(t, err)
		assert.Equal(t, "updated", got.Description)

		require.NoError(t, s.DeleteProject(ctx, p1.ID))
		err = s.DeleteProject(ctx, p1.ID)
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("TestApplications", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		owner := newUser("henry")
		require.NoError(t, s.CreateUser(ctx, owner))

		app := &store.Application{
			Name:         "My App",
			ClientID:     "client-1",
			ClientSecret: "secret-1",
			RedirectURIs: []string{"https://client.test/cb"},
			Scopes:       []string{"profile"},
			OwnerID:      owner.ID,
		}
		require.NoError(t, s.CreateApplication(ctx, app))
		require.NotZero(t, app.ID)

		got, err := s.ApplicationByClientID(ctx, "client-1")
		require.NoError(t, err)
		assert.Equal(t, app.ID, got.ID)
		assert.Equal(t, []string{"https://client.test/cb"}, got.RedirectURIs)

		app.Name = "Renamed"
		app.RedirectURIs = append(app.RedirectURIs, "https://client.test/cb2")
		require.NoError(t, s.UpdateApplication(ctx, app))
		got, err = s.ApplicationByID(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		assert.Len(t, got.RedirectURIs, 2)

		apps, err := s.ApplicationsByOwner(ctx, owner.ID)
		require.NoError(t, err)
		assert.Len(t, apps, 1)

		all, err := s.ListApplications(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("TestApplicationDeleteCascade", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		owner := newUser("iris")
		require.NoError(t, s.CreateUser(ctx, owner))

		app := &store.Application{
			Name: "Doomed", ClientID: "client-d", ClientSecret: "secret-d",
			RedirectURIs: []string{"https://d.test/cb"}, OwnerID: owner.ID,
		}
		require.NoError(t, s.CreateApplication(ctx, app))

		exp := time.Now().Add(10 * time.Minute)
		require.NoError(t, s.CreateAuthCode(ctx, &store.AuthCode{
			Code: "code-1", ClientID: "client-d", UserID: owner.ID,
			RedirectURI: "https://d.test/cb", ExpiresAt: exp,
		}))
		require.NoError(t, s.CreateAuthCode(ctx, &store.AuthCode{
			Code: "code-2", ClientID: "client-d", UserID: owner.ID,
			RedirectURI: "https://d.test/cb", ExpiresAt: exp,
		}))
		require.NoError(t, s.ConsumeAuthCode(ctx, "code-2", &store.AccessToken{
			Token: "at-1", ClientID: "client-d", UserID: owner.ID,
			ExpiresAt: time.Now().Add(time.Hour),
		}))

		result, err := s.DeleteApplication(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.CodesDeleted)
		assert.Equal(t, int64(1), result.TokensDeleted)

		_, err = s.ApplicationByID(ctx, app.ID)
		assert.True(t, errors.Is(err, store.ErrNotFound))
		_, err = s.AccessTokenByToken(ctx, "at-1")
		assert.True(t, errors.Is(err, store.ErrNotFound))

		_, err = s.DeleteApplication(ctx, app.ID)
		assert.True(t, errors.Is(err, store.ErrNotFound), "second delete should report not found")
	})

	t.Run("TestAuthCodeTripleLookup", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		exp := time.Now().Add(10 * time.Minute)
		require.NoError(t, s.CreateAuthCode(ctx, &store.AuthCode{
			Code: "code-x", ClientID: "client-x", UserID: 1,
			RedirectURI: "https://x.test/cb", Scope: "profile", ExpiresAt: exp,
		}))

		got, err := s.AuthCode(ctx, "code-x", "client-x", "https://x.test/cb")
		require.NoError(t, err)
		assert.Equal(t, "profile", got.Scope)
		assert.WithinDuration(t, exp, got.ExpiresAt, time.Second)

		// Any mismatched member of the triple reads as an unknown code.
		_, err = s.AuthCode(ctx, "code-x", "client-x", "https://evil.test/cb")
		assert.True(t, errors.Is(err, store.ErrNotFound))
		_, err = s.AuthCode(ctx, "code-x", "client-y", "https://x.test/cb")
		assert.True(t, errors.Is(err, store.ErrNotFound))
		_, err = s.AuthCode(ctx, "nope", "client-x", "https://x.test/cb")
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("TestConsumeAuthCodeOnce", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		require.NoError(t, s.CreateAuthCode(ctx, &store.AuthCode{
			Code: "code-once", ClientID: "client-o", UserID: 1,
			RedirectURI: "https://o.test/cb", ExpiresAt: time.Now().Add(10 * time.Minute),
		}))

		token := &store.AccessToken{
			Token: "at-once", ClientID: "client-o", UserID: 1,
			ExpiresAt: time.Now().Add(time.Hour),
		}
		require.NoError(t, s.ConsumeAuthCode(ctx, "code-once", token))

		got, err := s.AccessTokenByToken(ctx, "at-once")
		require.NoError(t, err)
		assert.Equal(t, "client-o", got.ClientID)

		err = s.ConsumeAuthCode(ctx, "code-once", &store.AccessToken{
			Token: "at-second", ClientID: "client-o", UserID: 1,
			ExpiresAt: time.Now().Add(time.Hour),
		})
		assert.True(t, errors.Is(err, store.ErrNotFound), "a consumed code cannot be exchanged again")
		_, err = s.AccessTokenByToken(ctx, "at-second")
		assert.True(t, errors.Is(err, store.ErrNotFound), "losing exchange must not persist a token")
	})

	t.Run("TestRevokeAndConnections", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		owner := newUser("judy")
		require.NoError(t, s.CreateUser(ctx, owner))
		app := &store.Application{
			Name: "Connected", ClientID: "client-c", ClientSecret: "secret-c",
			RedirectURIs: []string{"https://c.test/cb"}, OwnerID: owner.ID,
		}
		require.NoError(t, s.CreateApplication(ctx, app))

		exp := time.Now().Add(time.Hour)
		for i, code := range []string{"cc-1", "cc-2"} {
			require.NoError(t, s.CreateAuthCode(ctx, &store.AuthCode{
				Code: code, ClientID: "client-c", UserID: owner.ID,
				RedirectURI: "https://c.test/cb", ExpiresAt: time.Now().Add(10 * time.Minute),
			}))
			require.NoError(t, s.ConsumeAuthCode(ctx, code, &store.AccessToken{
				Token: []string{"ct-1", "ct-2"}[i], ClientID: "client-c", UserID: owner.ID,
				ExpiresAt: exp,
			}))
		}

		conns, err := s.Connections(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, conns, 1)
		assert.Equal(t, "client-c", conns[0].App.ClientID)
		assert.Equal(t, int64(2), conns[0].TokenCount)

		conns, err = s.Connections(ctx, 999)
		require.NoError(t, err)
		assert.Empty(t, conns)

		n, err := s.RevokeClientTokens(ctx, owner.ID, "client-c")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		conns, err = s.Connections(ctx, owner.ID)
		require.NoError(t, err)
		assert.Empty(t, conns)

		n, err = s.RevokeClientTokens(ctx, owner.ID, "client-c")
		require.NoError(t, err)
		assert.Zero(t, n, "revoking again removes nothing")
	})

	t.Run("TestDeleteAccessToken", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		require.NoError(t, s.CreateAuthCode(ctx, &store.AuthCode{
			Code: "code-del", ClientID: "client-del", UserID: 1,
			RedirectURI: "https://del.test/cb", ExpiresAt: time.Now().Add(10 * time.Minute),
		}))
		require.NoError(t, s.ConsumeAuthCode(ctx, "code-del", &store.AccessToken{
			Token: "at-del", ClientID: "client-del", UserID: 1,
			ExpiresAt: time.Now().Add(time.Hour),
		}))

		require.NoError(t, s.DeleteAccessToken(ctx, "at-del"))
		err := s.DeleteAccessToken(ctx, "at-del")
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("TestDeleteAuthCode", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		require.NoError(t, s.CreateAuthCode(ctx, &store.AuthCode{
			Code: "code-gone", ClientID: "client-g", UserID: 1,
			RedirectURI: "https://g.test/cb", ExpiresAt: time.Now().Add(10 * time.Minute),
		}))
		require.NoError(t, s.DeleteAuthCode(ctx, "code-gone"))
		err := s.DeleteAuthCode(ctx, "code-gone")
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})
}
