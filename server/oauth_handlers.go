package server

import (
	"net/http"
	"time"

	oautherrors "github.com/go-oauth2/oauth2/v4/errors"

	"github.com/AustinSDK/Authincation-service/errors"
	"github.com/AustinSDK/Authincation-service/oauth"
	"github.com/AustinSDK/Authincation-service/store"
)

type appView struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ClientID     string    `json:"client_id"`
	RedirectURIs []string  `json:"redirect_uris"`
	Scopes       []string  `json:"scopes"`
	OwnerID      int64     `json:"owner_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// appCreatedView is the registration response. It is the only place the
// client secret appears in full.
type appCreatedView struct {
	appView
	ClientSecret string `json:"client_secret"`
}

func viewApp(a *store.Application) appView {
	return appView{
		ID:           a.ID,
		Name:         a.Name,
		Description:  a.Description,
		ClientID:     a.ClientID,
		RedirectURIs: a.RedirectURIs,
		Scopes:       a.Scopes,
		OwnerID:      a.OwnerID,
		CreatedAt:    a.CreatedAt,
	}
}

func (s *Server) handleListApps(r *http.Request) (any, error) {
	u, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	all := r.URL.Query().Get("all") == "1"
	apps, err := s.oauth.Applications(r.Context(), u, all)
	if err != nil {
		return nil, err
	}
	views := make([]appView, len(apps))
	for i := range apps {
		views[i] = viewApp(&apps[i])
	}
	return map[string]any{"applications": views}, nil
}

func (s *Server) handleCreateApp(r *http.Request) (any, error) {
	u, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	var body struct {
		Name         string   `json:"name"`
		Description  string   `json:"description"`
		RedirectURIs []string `json:"redirect_uris"`
		Scopes       []string `json:"scopes"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	app, err := s.oauth.CreateApplication(r.Context(), oauth.CreateParams{
		Name:         body.Name,
		Description:  body.Description,
		RedirectURIs: body.RedirectURIs,
		Scopes:       body.Scopes,
	}, u)
	if err != nil {
		return nil, err
	}
	return created{appCreatedView{
		appView:      viewApp(app),
		ClientSecret: app.ClientSecret,
	}}, nil
}

func (s *Server) handleUpdateApp(r *http.Request) (any, error) {
	u, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	var body struct {
		Name         string   `json:"name"`
		Description  string   `json:"description"`
		RedirectURIs []string `json:"redirect_uris"`
		Scopes       []string `json:"scopes"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	app := &store.Application{
		ID:           id,
		Name:         body.Name,
		Description:  body.Description,
		RedirectURIs: body.RedirectURIs,
		Scopes:       body.Scopes,
	}
	if err := s.oauth.UpdateApplication(r.Context(), app, u); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NewC("Application not found", errors.NotFound)
		}
		return nil, err
	}
	updated, err := s.oauth.Application(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return viewApp(updated), nil
}

func (s *Server) handleDeleteApp(r *http.Request) (any, error) {
	u, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	res, err := s.oauth.DeleteApplication(r.Context(), id, u)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NewC("Application not found", errors.NotFound)
		}
		return nil, err
	}
	return map[string]any{
		"message":        "Application deleted",
		"codes_deleted":  res.CodesDeleted,
		"tokens_deleted": res.TokensDeleted,
	}, nil
}

// handleAuthorize implements the authorization endpoint. Unauthenticated
// callers get a 401 so the frontend can bounce them through login; protocol
// failures use the RFC 6749 error shape.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	if u == nil {
		writeError(w, r, errors.NewC("Authentication required", errors.Unauthenticated))
		return
	}
	q := r.URL.Query()
	redirect, err := s.oauth.Authorize(r.Context(), u.ID,
		q.Get("client_id"), q.Get("redirect_uri"), q.Get("response_type"),
		q.Get("scope"), q.Get("state"))
	if err != nil {
		writeOAuthError(w, r, err)
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

// handleToken implements the token endpoint. Credentials arrive as form
// fields per RFC 6749.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, r, errors.Mark(oautherrors.ErrInvalidRequest, 0))
		return
	}
	resp, err := s.oauth.Exchange(r.Context(),
		r.PostFormValue("grant_type"),
		r.PostFormValue("code"),
		r.PostFormValue("client_id"),
		r.PostFormValue("client_secret"),
		r.PostFormValue("redirect_uri"))
	if err != nil {
		writeOAuthError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeOAuthError(w, r, errors.Mark(oautherrors.ErrInvalidRequest, 0))
		return
	}
	at, err := s.oauth.ValidateToken(r.Context(), body.AccessToken)
	if err != nil {
		description := "invalid access token"
		if errors.Is(err, oautherrors.ErrExpiredAccessToken) {
			description = "expired access token"
		} else if !errors.Is(err, oautherrors.ErrInvalidAccessToken) {
			writeOAuthError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusUnauthorized, map[string]any{
			"valid":             false,
			"error":             "invalid_token",
			"error_description": description,
		})
		return
	}

	username := ""
	if u, uerr := s.auth.User(r.Context(), at.UserID); uerr == nil {
		username = u.Username
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"valid":      true,
		"user_id":    at.UserID,
		"username":   username,
		"client_id":  at.ClientID,
		"scope":      at.Scope,
		"expires_at": at.ExpiresAt,
	})
}

func (s *Server) handleConnections(r *http.Request) (any, error) {
	u, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	conns, err := s.oauth.Connections(r.Context(), u.ID)
	if err != nil {
		return nil, err
	}
	type connectionView struct {
		ClientID    string `json:"client_id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		TokenCount  int64  `json:"token_count"`
	}
	views := make([]connectionView, len(conns))
	for i, c := range conns {
		views[i] = connectionView{
			ClientID:    c.App.ClientID,
			Name:        c.App.Name,
			Description: c.App.Description,
			TokenCount:  c.TokenCount,
		}
	}
	return map[string]any{"connections": views}, nil
}

func (s *Server) handleRevoke(r *http.Request) (any, error) {
	u, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	var body struct {
		ClientID string `json:"client_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	if body.ClientID == "" {
		return nil, errors.NewC("client_id is required", errors.InvalidArgument)
	}
	n, err := s.oauth.Revoke(r.Context(), u.ID, body.ClientID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message":        "Tokens revoked",
		"tokens_revoked": n,
	}, nil
}
