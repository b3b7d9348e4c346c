// Package server exposes the service over HTTP: JSON endpoints for accounts,
// sessions, and projects, plus the OAuth 2.0 authorize and token endpoints.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/AustinSDK/Authincation-service/auth"
	"github.com/AustinSDK/Authincation-service/logging"
	"github.com/AustinSDK/Authincation-service/oauth"
	"github.com/AustinSDK/Authincation-service/project"
	"github.com/AustinSDK/Authincation-service/ratelimit"
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// ExternalAddress is the address clients reach the service on. An https
	// address marks the session cookie Secure.
	ExternalAddress string

	Auth     *auth.Service
	Projects *project.Service
	OAuth    *oauth.Service
	Limiter  *ratelimit.Limiter
	Logger   logging.Logger
}

// Server serves the HTTP API.
type Server struct {
	http         *http.Server
	auth         *auth.Service
	projects     *project.Service
	oauth        *oauth.Service
	limiter      *ratelimit.Limiter
	logger       logging.Logger
	secureCookie bool
}

// New assembles the router and returns a server ready to start.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	s := &Server{
		auth:         opts.Auth,
		projects:     opts.Projects,
		oauth:        opts.OAuth,
		limiter:      opts.Limiter,
		logger:       logger,
		secureCookie: strings.HasPrefix(opts.ExternalAddress, "https://"),
	}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the full middleware and routing stack.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.Handle("/login", wrapJSON(s.rateLimited(s.handleLogin))).Methods(http.MethodPost)
	r.Handle("/register", wrapJSON(s.rateLimited(s.handleRegister))).Methods(http.MethodPost)
	r.Handle("/logout", wrapJSON(s.handleLogout)).Methods(http.MethodPost)
	r.Handle("/sessions", wrapJSON(s.handleSessions)).Methods(http.MethodGet)

	r.Handle("/projects", wrapJSON(s.handleListProjects)).Methods(http.MethodGet)
	r.Handle("/projects", wrapJSON(s.handleCreateProject)).Methods(http.MethodPost)
	r.Handle("/projects/{id:[0-9]+}", wrapJSON(s.handleUpdateProject)).Methods(http.MethodPut)
	r.Handle("/projects/{id:[0-9]+}", wrapJSON(s.handleDeleteProject)).Methods(http.MethodDelete)

	r.Handle("/users/{id:[0-9]+}/permissions", wrapJSON(s.handleGetPermissions)).Methods(http.MethodGet)
	r.Handle("/users/{id:[0-9]+}/permissions", wrapJSON(s.handleSetPermissions)).Methods(http.MethodPut)
	r.Handle("/users/{id:[0-9]+}/password", wrapJSON(s.handleResetPassword)).Methods(http.MethodPost)
	r.Handle("/users/{id:[0-9]+}", wrapJSON(s.handleDeleteUser)).Methods(http.MethodDelete)

	r.Handle("/oauth/apps", wrapJSON(s.handleListApps)).Methods(http.MethodGet)
	r.Handle("/oauth/apps", wrapJSON(s.handleCreateApp)).Methods(http.MethodPost)
	r.Handle("/oauth/apps/{id:[0-9]+}", wrapJSON(s.handleUpdateApp)).Methods(http.MethodPut)
	r.Handle("/oauth/apps/{id:[0-9]+}", wrapJSON(s.handleDeleteApp)).Methods(http.MethodDelete)

	r.HandleFunc("/oauth/authorize", s.handleAuthorize).Methods(http.MethodGet)
	r.HandleFunc("/oauth/token", s.handleToken).Methods(http.MethodPost)
	r.HandleFunc("/oauth/validate_token", s.handleValidateToken).Methods(http.MethodPost)
	r.Handle("/oauth/connections", wrapJSON(s.handleConnections)).Methods(http.MethodGet)
	r.Handle("/oauth/revoke", wrapJSON(s.handleRevoke)).Methods(http.MethodPost)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	var h http.Handler = r
	h = s.identify(h)
	h = compress(h)
	h = recoverPanics(h)
	h = s.requestLogging(h)
	return h
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Infow("server listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// sessionCookieFor builds the session cookie holding the given token.
func (s *Server) sessionCookieFor(token string) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
