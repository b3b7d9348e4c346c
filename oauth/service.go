package oauth

import (
	"context"
	"time"

	oautherrors "github.com/go-oauth2/oauth2/v4/errors"

	"github.com/AustinSDK/Authincation-service/errors"
	"github.com/AustinSDK/Authincation-service/logging"
	"github.com/AustinSDK/Authincation-service/perm"
	"github.com/AustinSDK/Authincation-service/store"
)

// Service implements the provider side of the authorization code flow.
type Service struct {
	store    store.Store
	codeTTL  time.Duration
	tokenTTL time.Duration

	// Injectable for tests.
	now func() time.Time
}

// NewService returns an OAuth service with the given code and token
// lifetimes.
func NewService(st store.Store, codeTTL, tokenTTL time.Duration) *Service {
	return &Service{
		store:    st,
		codeTTL:  codeTTL,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// CreateParams describes a new application registration.
type CreateParams struct {
	Name         string
	Description  string
	RedirectURIs []string
	Scopes       []string
}

// CreateApplication registers an application owned by the given user and
// mints its credentials. The client secret is only available in full on the
// returned record; treat it as shown-once.
func (s *Service) CreateApplication(ctx context.Context, p CreateParams, owner *store.User) (*store.Application, error) {
	if p.Name == "" {
		return nil, errors.NewC("Application name is required", errors.InvalidArgument)
	}
	if err := validateRedirectURIs(p.RedirectURIs); err != nil {
		return nil, err
	}

	clientID, clientSecret, err := NewCredentials()
	if err != nil {
		return nil, err
	}
	app := &store.Application{
		Name:         p.Name,
		Description:  p.Description,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURIs: p.RedirectURIs,
		Scopes:       p.Scopes,
		OwnerID:      owner.ID,
	}
	if err := s.store.CreateApplication(ctx, app); err != nil {
		return nil, err
	}
	logging.Infow(ctx, "application registered",
		"appID", app.ID, "clientID", app.ClientID, "ownerID", owner.ID)
	return app, nil
}

// Application returns an application by id.
func (s *Service) Application(ctx context.Context, id int64) (*store.Application, error) {
	return s.store.ApplicationByID(ctx, id)
}

// Applications lists the requester's applications. Admins asking for all see
// every registration.
func (s *Service) Applications(ctx context.Context, requester *store.User, all bool) ([]store.Application, error) {
	if all && perm.IsAdmin(requester.Permissions) {
		return s.store.ListApplications(ctx)
	}
	return s.store.ApplicationsByOwner(ctx, requester.ID)
}

// UpdateApplication replaces an application's mutable fields. Only the owner
// or an admin may update; credentials are never changed.
func (s *Service) UpdateApplication(ctx context.Context, app *store.Application, requester *store.User) error {
	existing, err := s.store.ApplicationByID(ctx, app.ID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(existing, requester); err != nil {
		return err
	}
	if err := validateRedirectURIs(app.RedirectURIs); err != nil {
		return err
	}
	return s.store.UpdateApplication(ctx, app)
}

// DeleteApplication removes an application and everything issued under it,
// reporting how many codes and tokens were revoked. Only the owner or an
// admin may delete.
func (s *Service) DeleteApplication(ctx context.Context, id int64, requester *store.User) (store.CascadeResult, error) {
	existing, err := s.store.ApplicationByID(ctx, id)
	if err != nil {
		return store.CascadeResult{}, err
	}
	if err := s.requireOwner(existing, requester); err != nil {
		return store.CascadeResult{}, err
	}
	res, err := s.store.DeleteApplication(ctx, id)
	if err != nil {
		return store.CascadeResult{}, err
	}
	logging.Infow(ctx, "application deleted", "appID", id,
		"codesRevoked", res.CodesDeleted, "tokensRevoked", res.TokensDeleted)
	return res, nil
}

func (s *Service) requireOwner(app *store.Application, requester *store.User) error {
	if app.OwnerID == requester.ID || perm.IsAdmin(requester.Permissions) {
		return nil
	}
	return errors.Mark(ErrNotAppOwner, 0)
}

// Authorize mints a single-use authorization code for an authenticated user
// and returns the redirect target carrying it. The redirect URI must match
// one of the application's registered URIs exactly; state is passed back
// verbatim when present.
func (s *Service) Authorize(ctx context.Context, userID int64, clientID, redirectURI, responseType, scope, state string) (string, error) {
	if responseType != "code" {
		return "", errors.Mark(oautherrors.ErrUnsupportedResponseType, 0)
	}
	app, err := s.store.ApplicationByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", errors.Mark(oautherrors.ErrInvalidClient, 0)
		}
		return "", err
	}
	if !containsURI(app.RedirectURIs, redirectURI) {
		return "", errors.Mark(oautherrors.ErrInvalidRequest, 0)
	}

	code, err := randomHex(codeBytes)
	if err != nil {
		return "", err
	}
	now := s.now()
	if err := s.store.CreateAuthCode(ctx, &store.AuthCode{
		Code:        code,
		ClientID:    clientID,
		UserID:      userID,
		RedirectURI: redirectURI,
		Scope:       scope,
		ExpiresAt:   now.Add(s.codeTTL),
		CreatedAt:   now,
	}); err != nil {
		return "", err
	}

	logging.Infow(ctx, "authorization code issued", "clientID", clientID, "userID", userID)
	return redirectWithCode(redirectURI, code, state), nil
}

func containsURI(uris []string, uri string) bool {
	for _, u := range uris {
		if u == uri {
			return true
		}
	}
	return false
}

// Exchange swaps an authorization code for an access token. The code is
// consumed atomically, so concurrent exchanges of the same code yield exactly
// one token.
func (s *Service) Exchange(ctx context.Context, grantType, code, clientID, clientSecret, redirectURI string) (*TokenResponse, error) {
	if grantType != "authorization_code" {
		return nil, errors.Mark(oautherrors.ErrUnsupportedGrantType, 0)
	}

	app, err := s.store.ApplicationByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Mark(oautherrors.ErrInvalidClient, 0)
		}
		return nil, err
	}
	if !secretEqual(app.ClientSecret, clientSecret) {
		return nil, errors.Mark(oautherrors.ErrInvalidClient, 0)
	}

	ac, err := s.store.AuthCode(ctx, code, clientID, redirectURI)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Mark(oautherrors.ErrInvalidGrant, 0)
		}
		return nil, err
	}

	now := s.now()
	if now.After(ac.ExpiresAt) {
		// Stale codes are swept lazily; a failed delete is harmless.
		if err := s.store.DeleteAuthCode(ctx, ac.Code); err != nil && !errors.Is(err, store.ErrNotFound) {
			logging.Warnw(ctx, "failed to delete expired auth code", "error", err)
		}
		return nil, errors.Mark(oautherrors.ErrInvalidGrant, 0)
	}

	token, err := randomHex(tokenBytes)
	if err != nil {
		return nil, err
	}
	if err := s.store.ConsumeAuthCode(ctx, ac.Code, &store.AccessToken{
		Token:     token,
		ClientID:  clientID,
		UserID:    ac.UserID,
		Scope:     ac.Scope,
		ExpiresAt: now.Add(s.tokenTTL),
		CreatedAt: now,
	}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Mark(oautherrors.ErrInvalidGrant, 0)
		}
		return nil, err
	}

	logging.Infow(ctx, "access token issued", "clientID", clientID, "userID", ac.UserID)
	// Token lifetimes are effectively unbounded, so expires_in is reported
	// as null rather than a misleading countdown.
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   nil,
		Scope:       ac.Scope,
	}, nil
}

// ValidateToken resolves an access token to its grant. Unknown tokens fail
// as invalid; expired tokens are deleted on sight and fail as expired.
func (s *Service) ValidateToken(ctx context.Context, token string) (*store.AccessToken, error) {
	if token == "" {
		return nil, errors.Mark(oautherrors.ErrInvalidAccessToken, 0)
	}
	at, err := s.store.AccessTokenByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Mark(oautherrors.ErrInvalidAccessToken, 0)
		}
		return nil, err
	}
	if s.now().After(at.ExpiresAt) {
		if err := s.store.DeleteAccessToken(ctx, at.Token); err != nil && !errors.Is(err, store.ErrNotFound) {
			logging.Warnw(ctx, "failed to delete expired access token", "error", err)
		}
		return nil, errors.Mark(oautherrors.ErrExpiredAccessToken, 0)
	}
	return at, nil
}

// Revoke removes every token the user granted to one client and reports how
// many were revoked.
func (s *Service) Revoke(ctx context.Context, userID int64, clientID string) (int64, error) {
	n, err := s.store.RevokeClientTokens(ctx, userID, clientID)
	if err != nil {
		return 0, err
	}
	logging.Infow(ctx, "tokens revoked", "clientID", clientID, "userID", userID, "count", n)
	return n, nil
}

// Connections lists the applications currently holding live tokens for a
// user.
func (s *Service) Connections(ctx context.Context, userID int64) ([]store.Connection, error) {
	return s.store.Connections(ctx, userID)
}
