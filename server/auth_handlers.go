package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/AustinSDK/Authincation-service/auth"
	"github.com/AustinSDK/Authincation-service/errors"
	"github.com/AustinSDK/Authincation-service/perm"
	"github.com/AustinSDK/Authincation-service/store"
)

// ErrAdminRequired is returned when a non-admin calls an administrative
// endpoint.
var ErrAdminRequired = errors.NewC("Admin access required", errors.PermissionDenied)

type userView struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"display_name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Permissions   []string  `json:"permissions"`
	CreatedAt     time.Time `json:"created_at"`
}

func viewUser(u *store.User) userView {
	return userView{
		ID:            u.ID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Permissions:   u.Permissions,
		CreatedAt:     u.CreatedAt,
	}
}

type sessionView struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Current   bool      `json:"current"`
}

// loginResponse carries the session token in both the body and the cookie,
// for browser and API clients respectively.
type loginResponse struct {
	Message string   `json:"message"`
	Token   string   `json:"token"`
	User    userView `json:"user"`
	c       *http.Cookie
}

func (l loginResponse) cookie() *http.Cookie { return l.c }

// requireAdmin returns the authenticated user if they hold the admin tag.
func requireAdmin(r *http.Request) (*store.User, error) {
	u, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	if !perm.IsAdmin(u.Permissions) {
		return nil, errors.Mark(ErrAdminRequired, 0)
	}
	return u, nil
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, errors.WithCode(errors.Wrap(err, 0), errors.InvalidArgument).
			WithPublicMessage("Invalid id")
	}
	return id, nil
}

func (s *Server) handleLogin(r *http.Request) (any, error) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	sess, u, err := s.auth.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		return nil, err
	}
	return loginResponse{
		Message: "Login successful",
		Token:   sess.Token,
		User:    viewUser(u),
		c:       s.sessionCookieFor(sess.Token),
	}, nil
}

func (s *Server) handleRegister(r *http.Request) (any, error) {
	var body struct {
		Username    string `json:"username"`
		Password    string `json:"password"`
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	u, err := s.auth.Register(r.Context(), auth.RegisterParams{
		Username:    body.Username,
		Password:    body.Password,
		Email:       body.Email,
		DisplayName: body.DisplayName,
	})
	if err != nil {
		return nil, err
	}
	return created{viewUser(u)}, nil
}

func (s *Server) handleLogout(r *http.Request) (any, error) {
	u, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	var body struct {
		TokenID int64 `json:"token_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	if err := s.auth.Logout(r.Context(), body.TokenID, u); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NewC("Session not found", errors.NotFound)
		}
		return nil, err
	}
	return messageResponse{Message: "Logged out"}, nil
}

func (s *Server) handleSessions(r *http.Request) (any, error) {
	u, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	sessions, err := s.auth.Sessions(r.Context(), u.ID)
	if err != nil {
		return nil, err
	}
	current := bearerToken(r)
	views := make([]sessionView, len(sessions))
	for i, sess := range sessions {
		views[i] = sessionView{
			ID:        sess.ID,
			CreatedAt: sess.CreatedAt,
			Current:   sess.Token == current,
		}
	}
	return map[string]any{"sessions": views}, nil
}

func (s *Server) handleGetPermissions(r *http.Request) (any, error) {
	if _, err := requireAdmin(r); err != nil {
		return nil, err
	}
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	u, err := s.auth.User(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NewC("User not found", errors.NotFound)
		}
		return nil, err
	}
	return map[string]any{"permissions": u.Permissions}, nil
}

func (s *Server) handleSetPermissions(r *http.Request) (any, error) {
	if _, err := requireAdmin(r); err != nil {
		return nil, err
	}
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	var body struct {
		Permissions []string `json:"permissions"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	if err := s.auth.UpdatePermissions(r.Context(), id, body.Permissions); err != nil {
		return nil, err
	}
	return messageResponse{Message: "Permissions updated"}, nil
}

func (s *Server) handleResetPassword(r *http.Request) (any, error) {
	if _, err := requireAdmin(r); err != nil {
		return nil, err
	}
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	if err := s.auth.ResetPassword(r.Context(), id, body.Password); err != nil {
		return nil, err
	}
	return messageResponse{Message: "Password reset"}, nil
}

func (s *Server) handleDeleteUser(r *http.Request) (any, error) {
	admin, err := requireAdmin(r)
	if err != nil {
		return nil, err
	}
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	if err := s.auth.DeleteAccount(r.Context(), id, admin); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NewC("User not found", errors.NotFound)
		}
		return nil, err
	}
	return messageResponse{Message: "Account deleted"}, nil
}
