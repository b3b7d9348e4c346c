// Package store defines the persistence interface for the service and the
// models it stores. Implementations live in the sqlite, postgres, and
// memstore subpackages and are exercised by the shared conformance suite in
// storetests.
package store

import (
	"context"

	"github.com/AustinSDK/Authincation-service/errors"
)

// Sentinel errors returned by Store implementations. Driver-specific failures
// are translated to these at the store boundary so callers never see raw
// database errors.
var (
	ErrNotFound      = errors.NewC("store: not found", errors.NotFound)
	ErrAlreadyExists = errors.NewC("store: already exists", errors.AlreadyExists)
)

// Store is the persistence boundary. All methods are safe for concurrent use.
// Multi-row mutations documented as cascades execute in a single transaction.
type Store interface {
	// CreateUser inserts a user and populates ID and CreatedAt. Username and
	// email uniqueness violations return ErrAlreadyExists.
	CreateUser(ctx context.Context, u *User) error
	// UserByID returns the user with the given id, or ErrNotFound.
	UserByID(ctx context.Context, id int64) (*User, error)
	// UserByUsername looks a user up case-insensitively.
	UserByUsername(ctx context.Context, username string) (*User, error)
	// UserByEmail looks a user up by exact email.
	UserByEmail(ctx context.Context, email string) (*User, error)
	// UpdateUserPermissions replaces a user's permission tag set.
	UpdateUserPermissions(ctx context.Context, id int64, tags []string) error
	// ResetUserPassword replaces the password hash and deletes every session
	// belonging to the user, atomically.
	ResetUserPassword(ctx context.Context, id int64, passwordHash string) error
	// DeleteUser removes a user and all of their sessions, atomically.
	DeleteUser(ctx context.Context, id int64) error

	// CreateSession inserts a session and populates ID and CreatedAt.
	CreateSession(ctx context.Context, s *Session) error
	// SessionByToken returns the session holding the exact token string.
	SessionByToken(ctx context.Context, token string) (*Session, error)
	// SessionByID returns the session with the given id.
	SessionByID(ctx context.Context, id int64) (*Session, error)
	// SessionsByUser lists a user's sessions in creation order.
	SessionsByUser(ctx context.Context, userID int64) ([]Session, error)
	// DeleteSession removes a session by id, ErrNotFound if absent.
	DeleteSession(ctx context.Context, id int64) error

	// CreateProject inserts a project and populates ID and CreatedAt. A
	// duplicate name returns ErrAlreadyExists.
	CreateProject(ctx context.Context, p *Project) error
	// ProjectByID returns the project with the given id.
	ProjectByID(ctx context.Context, id int64) (*Project, error)
	// UpdateProject replaces a project's mutable fields. Renaming onto
	// another project's name returns ErrAlreadyExists.
	UpdateProject(ctx context.Context, p *Project) error
	// DeleteProject removes a project by id, ErrNotFound if absent.
	DeleteProject(ctx context.Context, id int64) error
	// ListProjects returns all projects in id order.
	ListProjects(ctx context.Context) ([]Project, error)

	// CreateApplication inserts an application and populates ID and CreatedAt.
	CreateApplication(ctx context.Context, a *Application) error
	// ApplicationByID returns the application with the given id.
	ApplicationByID(ctx context.Context, id int64) (*Application, error)
	// ApplicationByClientID returns the application registered under the
	// given public client id.
	ApplicationByClientID(ctx context.Context, clientID string) (*Application, error)
	// ApplicationsByOwner lists a user's applications in id order.
	ApplicationsByOwner(ctx context.Context, ownerID int64) ([]Application, error)
	// ListApplications returns all applications in id order.
	ListApplications(ctx context.Context) ([]Application, error)
	// UpdateApplication replaces an application's mutable fields (name,
	// description, redirect URIs, scopes). Credentials are immutable.
	UpdateApplication(ctx context.Context, a *Application) error
	// DeleteApplication removes an application together with all of its
	// authorization codes and access tokens, atomically, and reports how many
	// of each were removed.
	DeleteApplication(ctx context.Context, id int64) (CascadeResult, error)

	// CreateAuthCode inserts an authorization code.
	CreateAuthCode(ctx context.Context, c *AuthCode) error
	// AuthCode returns the code matching the exact (code, clientID,
	// redirectURI) triple. Any mismatch is ErrNotFound.
	AuthCode(ctx context.Context, code, clientID, redirectURI string) (*AuthCode, error)
	// DeleteAuthCode removes a code by its code string.
	DeleteAuthCode(ctx context.Context, code string) error
	// ConsumeAuthCode deletes the code and inserts the access token as one
	// atomic unit. If the code was already consumed, ErrNotFound is returned
	// and the token is not inserted.
	ConsumeAuthCode(ctx context.Context, code string, t *AccessToken) error

	// AccessTokenByToken returns the access token holding the exact token
	// string.
	AccessTokenByToken(ctx context.Context, token string) (*AccessToken, error)
	// DeleteAccessToken removes an access token by its token string.
	DeleteAccessToken(ctx context.Context, token string) error
	// RevokeClientTokens removes all of a user's tokens for one client and
	// reports how many were removed. Other users' grants are untouched.
	RevokeClientTokens(ctx context.Context, userID int64, clientID string) (int64, error)
	// Connections lists applications holding live tokens for the user, with
	// active token counts, in application id order.
	Connections(ctx context.Context, userID int64) ([]Connection, error)

	// Close releases the underlying resources.
	Close() error
}
