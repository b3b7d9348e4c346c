package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AustinSDK/Authincation-service/auth"
	"github.com/AustinSDK/Authincation-service/oauth"
	"github.com/AustinSDK/Authincation-service/project"
	"github.com/AustinSDK/Authincation-service/ratelimit"
	"github.com/AustinSDK/Authincation-service/store"
	"github.com/AustinSDK/Authincation-service/store/memstore"
)

type testEnv struct {
	t       *testing.T
	handler http.Handler
	store   store.Store
	auth    *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithLimiter(t, ratelimit.New(100, 3*time.Minute))
}

func newTestEnvWithLimiter(t *testing.T, limiter *ratelimit.Limiter) *testEnv {
	t.Helper()
	st := memstore.New()
	authSvc, err := auth.NewService(st, auth.TestHasher, []byte("test-signing-key"), 16)
	require.NoError(t, err)
	srv := New(Options{
		Addr:            ":0",
		ExternalAddress: "http://localhost:8080",
		Auth:            authSvc,
		Projects:        project.NewService(st),
		OAuth:           oauth.NewService(st, 10*time.Minute, 876000*time.Hour),
		Limiter:         limiter,
	})
	return &testEnv{t: t, handler: srv.Handler(), store: st, auth: authSvc}
}

// do issues a JSON request against the handler stack. A non-empty token is
// sent as a bearer Authorization header.
func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) decode(rec *httptest.ResponseRecorder, dst any) {
	e.t.Helper()
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), dst))
}

// signup registers and logs in a user, returning their session token.
func (e *testEnv) signup(username string) string {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/register", "", map[string]string{
		"username": username, "password": "password1",
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(http.MethodPost, "/login", "", map[string]string{
		"username": username, "password": "password1",
	})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	e.decode(rec, &resp)
	require.NotEmpty(e.t, resp.Token)
	return resp.Token
}

// grantTags assigns permission tags directly through the store layer.
func (e *testEnv) grantTags(username string, tags []string) {
	e.t.Helper()
	u, err := e.store.UserByUsername(e.t.Context(), username)
	require.NoError(e.t, err)
	require.NoError(e.t, e.auth.UpdatePermissions(e.t.Context(), u.ID, tags))
}

func (e *testEnv) userID(username string) int64 {
	e.t.Helper()
	u, err := e.store.UserByUsername(e.t.Context(), username)
	require.NoError(e.t, err)
	return u.ID
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestLoginSetsCookie(t *testing.T) {
	e := newTestEnv(t)
	e.signup("alice")

	rec := e.do(http.MethodPost, "/login", "", map[string]string{
		"username": "alice", "password": "password1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "token", c.Name)
	assert.NotEmpty(t, c.Value)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure, "http external address leaves the cookie insecure")
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
}

func TestLoginFailures(t *testing.T) {
	e := newTestEnv(t)
	e.signup("alice")

	for _, body := range []map[string]string{
		{"username": "alice", "password": "wrong"},
		{"username": "ghost", "password": "password1"},
	} {
		rec := e.do(http.MethodPost, "/login", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"message": "Invalid credentials"}`, rec.Body.String())
	}
}

func TestRegisterValidationMessages(t *testing.T) {
	e := newTestEnv(t)
	e.signup("alice")

	tests := []struct {
		name    string
		body    map[string]string
		message string
	}{
		{"duplicate username", map[string]string{"username": "alice", "password": "password1"}, "Account already exists"},
		{"blocked username", map[string]string{"username": "admin", "password": "password1"}, "Unallowed username"},
		{"short password", map[string]string{"username": "bob", "password": "short"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(http.MethodPost, "/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			if tt.message != "" {
				assert.Contains(t, rec.Body.String(), tt.message)
			}
		})
	}
}

func TestRateLimiting(t *testing.T) {
	e := newTestEnvWithLimiter(t, ratelimit.New(3, 3*time.Minute))
	for i := 0; i < 3; i++ {
		rec := e.do(http.MethodPost, "/login", "", map[string]string{
			"username": "ghost", "password": "password1",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec := e.do(http.MethodPost, "/login", "", map[string]string{
		"username": "ghost", "password": "password1",
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Too many requests")
}

func TestSessionsAndLogout(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup("alice")
	otherToken := e.signup("mallory")

	rec := e.do(http.MethodGet, "/sessions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Sessions []struct {
			ID      int64 `json:"id"`
			Current bool  `json:"current"`
		} `json:"sessions"`
	}
	e.decode(rec, &resp)
	require.Len(t, resp.Sessions, 1)
	assert.True(t, resp.Sessions[0].Current)
	sessionID := resp.Sessions[0].ID

	// Unauthenticated and non-owner logouts are refused.
	rec = e.do(http.MethodPost, "/logout", "", map[string]int64{"token_id": sessionID})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = e.do(http.MethodPost, "/logout", otherToken, map[string]int64{"token_id": sessionID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodPost, "/logout", token, map[string]int64{"token_id": 99999})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodPost, "/logout", token, map[string]int64{"token_id": sessionID})
	assert.Equal(t, http.StatusOK, rec.Code)

	// The revoked token no longer authenticates.
	rec = e.do(http.MethodGet, "/sessions", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProjectVisibility(t *testing.T) {
	e := newTestEnv(t)
	editorToken := e.signup("edith")
	e.grantTags("edith", []string{"editor", "beta"})
	// Tag changes take effect on the next resolve; the cached identity on
	// the token is refreshed because UpdatePermissions invalidates it.

	viewerToken := e.signup("vera")

	for _, p := range []map[string]any{
		{"name": "Public Site", "description": "for everyone"},
		{"name": "Beta Tools", "required_tags": []string{"beta"}},
	} {
		rec := e.do(http.MethodPost, "/projects", editorToken, p)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	var resp struct {
		Projects []struct {
			Name string `json:"name"`
		} `json:"projects"`
	}

	// Anonymous callers see public projects only.
	rec := e.do(http.MethodGet, "/projects", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	e.decode(rec, &resp)
	require.Len(t, resp.Projects, 1)
	assert.Equal(t, "Public Site", resp.Projects[0].Name)

	rec = e.do(http.MethodGet, "/projects", viewerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	e.decode(rec, &resp)
	assert.Len(t, resp.Projects, 1)

	rec = e.do(http.MethodGet, "/projects", editorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	e.decode(rec, &resp)
	assert.Len(t, resp.Projects, 2)
}

func TestProjectMutationRequiresEditor(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup("vera")

	rec := e.do(http.MethodPost, "/projects", token, map[string]string{"name": "Nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodPost, "/projects", "", map[string]string{"name": "Nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProjectConflictAndUpdate(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup("edith")
	e.grantTags("edith", []string{"editor"})

	rec := e.do(http.MethodPost, "/projects", token, map[string]string{"name": "One"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var createdResp struct {
		ID int64 `json:"id"`
	}
	e.decode(rec, &createdResp)

	rec = e.do(http.MethodPost, "/projects", token, map[string]string{"name": "One"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")

	rec = e.do(http.MethodPut, "/projects/999", token, map[string]string{"name": "Ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodPut, projectPath(createdResp.ID), token, map[string]string{
		"name": "One", "description": "updated",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(http.MethodDelete, projectPath(createdResp.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(http.MethodDelete, projectPath(createdResp.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func projectPath(id int64) string {
	return "/projects/" + jsonNumber(id)
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestAdminUserManagement(t *testing.T) {
	e := newTestEnv(t)
	adminToken := e.signup("alice")
	e.grantTags("alice", []string{"admin"})
	userToken := e.signup("bob")
	bobID := e.userID("bob")

	// Non-admins are refused.
	rec := e.do(http.MethodGet, "/users/"+jsonNumber(bobID)+"/permissions", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodPut, "/users/"+jsonNumber(bobID)+"/permissions", adminToken,
		map[string][]string{"permissions": {"editor"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/users/"+jsonNumber(bobID)+"/permissions", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"permissions": ["editor"]}`, rec.Body.String())

	// Password reset revokes bob's session.
	rec = e.do(http.MethodPost, "/users/"+jsonNumber(bobID)+"/password", adminToken,
		map[string]string{"password": "newpassword1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(http.MethodGet, "/sessions", userToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Self-delete is refused; deleting bob works.
	rec = e.do(http.MethodDelete, "/users/"+jsonNumber(e.userID("alice")), adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(http.MethodDelete, "/users/"+jsonNumber(bobID), adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(http.MethodDelete, "/users/"+jsonNumber(bobID), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOAuthFlow(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup("owner")

	// Register an application.
	rec := e.do(http.MethodPost, "/oauth/apps", token, map[string]any{
		"name":          "Test App",
		"redirect_uris": []string{"https://app.example.com/cb"},
		"scopes":        []string{"profile"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var app struct {
		ID           int64  `json:"id"`
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	}
	e.decode(rec, &app)
	require.NotEmpty(t, app.ClientSecret)

	// Listing never exposes the secret again.
	rec = e.do(http.MethodGet, "/oauth/apps", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), app.ClientSecret)

	// Authorize requires authentication.
	authorizeURL := "/oauth/authorize?client_id=" + app.ClientID +
		"&redirect_uri=" + url.QueryEscape("https://app.example.com/cb") +
		"&response_type=code&scope=profile&state=xyzzy"
	rec = e.do(http.MethodGet, authorizeURL, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodGet, authorizeURL, token, nil)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	code := location.Query().Get("code")
	require.NotEmpty(t, code)
	assert.Equal(t, "xyzzy", location.Query().Get("state"))

	// Exchange the code for a token.
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {app.ClientID},
		"client_secret": {app.ClientSecret},
		"redirect_uri":  {"https://app.example.com/cb"},
	}
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	tokenRec := httptest.NewRecorder()
	e.handler.ServeHTTP(tokenRec, req)
	require.Equal(t, http.StatusOK, tokenRec.Code, tokenRec.Body.String())

	var tokenResp struct {
		AccessToken string           `json:"access_token"`
		TokenType   string           `json:"token_type"`
		ExpiresIn   *json.RawMessage `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(tokenRec.Body.Bytes(), &tokenResp))
	assert.Equal(t, "Bearer", tokenResp.TokenType)
	assert.Nil(t, tokenResp.ExpiresIn)
	require.NotEmpty(t, tokenResp.AccessToken)
	assert.Contains(t, tokenRec.Body.String(), `"expires_in":null`)

	// A second exchange of the same code fails.
	req = httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	replay := httptest.NewRecorder()
	e.handler.ServeHTTP(replay, req)
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
	assert.Contains(t, replay.Body.String(), "invalid_grant")

	// Validate the access token.
	rec = e.do(http.MethodPost, "/oauth/validate_token", "", map[string]string{
		"access_token": tokenResp.AccessToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var valid struct {
		Valid    bool   `json:"valid"`
		Username string `json:"username"`
		ClientID string `json:"client_id"`
	}
	e.decode(rec, &valid)
	assert.True(t, valid.Valid)
	assert.Equal(t, "owner", valid.Username)
	assert.Equal(t, app.ClientID, valid.ClientID)

	// The access token authenticates API requests too.
	rec = e.do(http.MethodGet, "/oauth/connections", tokenResp.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token_count":1`)

	// Revoke and confirm.
	rec = e.do(http.MethodPost, "/oauth/revoke", token, map[string]string{
		"client_id": app.ClientID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tokens_revoked":1`)

	rec = e.do(http.MethodPost, "/oauth/validate_token", "", map[string]string{
		"access_token": tokenResp.AccessToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":false`)
}

func TestOAuthTokenErrors(t *testing.T) {
	e := newTestEnv(t)

	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {"deadbeef"},
		"client_secret": {"nope"},
	}
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported_grant_type")
	assert.Contains(t, rec.Body.String(), "error_description")
}

func TestAppDeleteReportsCascade(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup("owner")

	rec := e.do(http.MethodPost, "/oauth/apps", token, map[string]any{
		"name":          "Doomed App",
		"redirect_uris": []string{"https://app.example.com/cb"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var app struct {
		ID       int64  `json:"id"`
		ClientID string `json:"client_id"`
	}
	e.decode(rec, &app)

	// Mint a dangling code.
	rec = e.do(http.MethodGet, "/oauth/authorize?client_id="+app.ClientID+
		"&redirect_uri="+url.QueryEscape("https://app.example.com/cb")+
		"&response_type=code", token, nil)
	require.Equal(t, http.StatusFound, rec.Code)

	rec = e.do(http.MethodDelete, "/oauth/apps/"+jsonNumber(app.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"codes_deleted":1`)
	assert.Contains(t, rec.Body.String(), `"tokens_deleted":0`)
}

func TestPanicRecovery(t *testing.T) {
	h := recoverPanics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message": "Internal server error"}`, rec.Body.String())
}
