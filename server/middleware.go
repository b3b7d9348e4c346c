package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/google/uuid"

	"github.com/AustinSDK/Authincation-service/errors"
	"github.com/AustinSDK/Authincation-service/logging"
	"github.com/AustinSDK/Authincation-service/store"
)

type ctxKey int

const userKey ctxKey = iota

// ErrTooManyRequests is returned when a client exceeds the login or
// registration rate limit.
var ErrTooManyRequests = errors.NewC("Too many requests, slow down", errors.ResourceExhausted)

// sessionCookie is the cookie carrying the session token.
const sessionCookie = "token"

// withUser stores the authenticated user on the request context.
func withUser(ctx context.Context, u *store.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// userFrom returns the authenticated user, or nil for anonymous requests.
func userFrom(ctx context.Context) *store.User {
	u, _ := ctx.Value(userKey).(*store.User)
	return u
}

// requireUser returns the authenticated user or an Unauthenticated error.
func requireUser(r *http.Request) (*store.User, error) {
	if u := userFrom(r.Context()); u != nil {
		return u, nil
	}
	return nil, errors.NewC("Authentication required", errors.Unauthenticated)
}

// requestLogging attaches a request-scoped logger and logs request
// completion.
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		l := s.logger.
			With("req.id", uuid.NewString()).
			With("req.method", r.Method).
			With("req.path", r.URL.Path)
		r = r.WithContext(logging.With(r.Context(), l))
		next.ServeHTTP(w, r)
		l.Debugw("request complete", "duration", time.Since(start))
	})
}

// recoverPanics converts handler panics into 500 responses instead of
// tearing down the connection.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				err := errors.Wrap(p, 2)
				logging.Errorw(r.Context(), "panic in handler", "error", err,
					"stack", string(err.Stack()))
				writeJSON(w, r, http.StatusInternalServerError,
					map[string]string{"message": "Internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// identify resolves the caller from the session cookie or Authorization
// header and, failing that, from an OAuth access token. Absent or invalid
// credentials leave the request anonymous; handlers decide whether that is
// acceptable.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()

		u, err := s.auth.ResolveToken(ctx, token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if u == nil {
			// Not a session token; it may be an OAuth access token.
			if at, aerr := s.oauth.ValidateToken(ctx, token); aerr == nil {
				u, err = s.auth.User(ctx, at.UserID)
				if err != nil && !errors.Is(err, store.ErrNotFound) {
					writeError(w, r, err)
					return
				}
			}
		}
		if u != nil {
			next.ServeHTTP(w, r.WithContext(withUser(ctx, u)))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the credential from the token cookie or the
// Authorization header. The cookie wins when both are present.
func bearerToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// rateLimited guards a handler with the per-client-address limiter.
func (s *Server) rateLimited(fn jsonHandler) jsonHandler {
	return func(r *http.Request) (any, error) {
		if !s.limiter.Allow(clientAddr(r)) {
			return nil, errors.Mark(ErrTooManyRequests, 0)
		}
		return fn(r)
	}
}

// clientAddr returns the client's network address without the port.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// compress applies gzip encoding to responses when the client accepts it.
func compress(next http.Handler) http.Handler {
	return gziphandler.GzipHandler(next)
}
