// Package memstore provides an in-memory implementation of store.Store for
// tests and local development. All state is lost on process exit.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AustinSDK/Authincation-service/errors"
	"github.com/AustinSDK/Authincation-service/store"
)

// New returns an empty in-memory store.
func New() store.Store {
	return &memStore{
		users:    make(map[int64]store.User),
		sessions: make(map[int64]store.Session),
		projects: make(map[int64]store.Project),
		apps:     make(map[int64]store.Application),
		codes:    make(map[string]store.AuthCode),
		tokens:   make(map[string]store.AccessToken),
	}
}

type memStore struct {
	mu sync.Mutex

	users    map[int64]store.User
	sessions map[int64]store.Session
	projects map[int64]store.Project
	apps     map[int64]store.Application
	codes    map[string]store.AuthCode
	tokens   map[string]store.AccessToken

	nextUserID    int64
	nextSessionID int64
	nextProjectID int64
	nextAppID     int64
}

func (s *memStore) Close() error {
	return nil
}

func notFound() error {
	return errors.Mark(store.ErrNotFound, 2)
}

func alreadyExists() error {
	return errors.Mark(store.ErrAlreadyExists, 2)
}

// Users

func (s *memStore) CreateUser(_ context.Context, u *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) || existing.Email == u.Email {
			return alreadyExists()
		}
	}
	s.nextUserID++
	u.ID = s.nextUserID
	u.CreatedAt = time.Now().Truncate(time.Second)
	s.users[u.ID] = cloneUser(*u)
	return nil
}

func (s *memStore) UserByID(_ context.Context, id int64) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, notFound()
	}
	u = cloneUser(u)
	return &u, nil
}

func (s *memStore) UserByUsername(_ context.Context, username string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, notFound()
}

func (s *memStore) UserByEmail(_ context.Context, email string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, notFound()
}

func (s *memStore) UpdateUserPermissions(_ context.Context, id int64, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return notFound()
	}
	u.Permissions = append([]string(nil), tags...)
	s.users[id] = u
	return nil
}

func (s *memStore) ResetUserPassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return notFound()
	}
	u.PasswordHash = passwordHash
	s.users[id] = u
	for sid, sess := range s.sessions {
		if sess.UserID == id {
			delete(s.sessions, sid)
		}
	}
	return nil
}

func (s *memStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return notFound()
	}
	delete(s.users, id)
	for sid, sess := range s.sessions {
		if sess.UserID == id {
			delete(s.sessions, sid)
		}
	}
	return nil
}

// Sessions

func (s *memStore) CreateSession(_ context.Context, sess *store.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sessions {
		if existing.Token == sess.Token {
			return alreadyExists()
		}
	}
	s.nextSessionID++
	sess.ID = s.nextSessionID
	sess.CreatedAt = time.Now().Truncate(time.Second)
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *memStore) SessionByToken(_ context.Context, token string) (*store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.Token == token {
			sess := sess
			return &sess, nil
		}
	}
	return nil, notFound()
}

func (s *memStore) SessionByID(_ context.Context, id int64) (*store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, notFound()
	}
	return &sess, nil
}

func (s *memStore) SessionsByUser(_ context.Context, userID int64) ([]store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sessions []store.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			sessions = append(sessions, sess)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions, nil
}

func (s *memStore) DeleteSession(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return notFound()
	}
	delete(s.sessions, id)
	return nil
}

// Projects

func (s *memStore) CreateProject(_ context.Context, p *store.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.projects {
		if existing.Name == p.Name {
			return alreadyExists()
		}
	}
	s.nextProjectID++
	p.ID = s.nextProjectID
	p.CreatedAt = time.Now().Truncate(time.Second)
	s.projects[p.ID] = cloneProject(*p)
	return nil
}

func (s *memStore) ProjectByID(_ context.Context, id int64) (*store.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, notFound()
	}
	p = cloneProject(p)
	return &p, nil
}

func (s *memStore) UpdateProject(_ context.Context, p *store.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.projects[p.ID]
	if !ok {
		return notFound()
	}
	for _, other := range s.projects {
		if other.ID != p.ID && other.Name == p.Name {
			return alreadyExists()
		}
	}
	existing.Name = p.Name
	existing.Description = p.Description
	existing.Link = p.Link
	existing.RequiredTags = append([]string(nil), p.RequiredTags...)
	s.projects[p.ID] = existing
	return nil
}

func (s *memStore) DeleteProject(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return notFound()
	}
	delete(s.projects, id)
	return nil
}

func (s *memStore) ListProjects(_ context.Context) ([]store.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects := make([]store.Project, 0, len(s.projects))
	for _, p := range s.projects {
		projects = append(projects, cloneProject(p))
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	if len(projects) == 0 {
		return nil, nil
	}
	return projects, nil
}

// Applications

func (s *memStore) CreateApplication(_ context.Context, a *store.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.apps {
		if existing.ClientID == a.ClientID || existing.ClientSecret == a.ClientSecret {
			return alreadyExists()
		}
	}
	s.nextAppID++
	a.ID = s.nextAppID
	a.CreatedAt = time.Now().Truncate(time.Second)
	s.apps[a.ID] = cloneApp(*a)
	return nil
}

func (s *memStore) ApplicationByID(_ context.Context, id int64) (*store.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.apps[id]
	if !ok {
		return nil, notFound()
	}
	a = cloneApp(a)
	return &a, nil
}

func (s *memStore) ApplicationByClientID(_ context.Context, clientID string) (*store.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.apps {
		if a.ClientID == clientID {
			a = cloneApp(a)
			return &a, nil
		}
	}
	return nil, notFound()
}

func (s *memStore) ApplicationsByOwner(_ context.Context, ownerID int64) ([]store.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var apps []store.Application
	for _, a := range s.apps {
		if a.OwnerID == ownerID {
			apps = append(apps, cloneApp(a))
		}
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	return apps, nil
}

func (s *memStore) ListApplications(_ context.Context) ([]store.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apps := make([]store.Application, 0, len(s.apps))
	for _, a := range s.apps {
		apps = append(apps, cloneApp(a))
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	if len(apps) == 0 {
		return nil, nil
	}
	return apps, nil
}

func (s *memStore) UpdateApplication(_ context.Context, a *store.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.apps[a.ID]
	if !ok {
		return notFound()
	}
	existing.Name = a.Name
	existing.Description = a.Description
	existing.RedirectURIs = append([]string(nil), a.RedirectURIs...)
	existing.Scopes = append([]string(nil), a.Scopes...)
	s.apps[a.ID] = existing
	return nil
}

func (s *memStore) DeleteApplication(_ context.Context, id int64) (store.CascadeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result store.CascadeResult
	a, ok := s.apps[id]
	if !ok {
		return result, notFound()
	}
	for code, c := range s.codes {
		if c.ClientID == a.ClientID {
			delete(s.codes, code)
			result.CodesDeleted++
		}
	}
	for token, t := range s.tokens {
		if t.ClientID == a.ClientID {
			delete(s.tokens, token)
			result.TokensDeleted++
		}
	}
	delete(s.apps, id)
	return result, nil
}

// Authorization codes and access tokens

func (s *memStore) CreateAuthCode(_ context.Context, c *store.AuthCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[c.Code]; ok {
		return alreadyExists()
	}
	c.CreatedAt = time.Now().Truncate(time.Second)
	s.codes[c.Code] = *c
	return nil
}

func (s *memStore) AuthCode(_ context.Context, code, clientID, redirectURI string) (*store.AuthCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[code]
	if !ok || c.ClientID != clientID || c.RedirectURI != redirectURI {
		return nil, notFound()
	}
	return &c, nil
}

func (s *memStore) DeleteAuthCode(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[code]; !ok {
		return notFound()
	}
	delete(s.codes, code)
	return nil
}

func (s *memStore) ConsumeAuthCode(_ context.Context, code string, t *store.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[code]; !ok {
		return notFound()
	}
	if _, ok := s.tokens[t.Token]; ok {
		return alreadyExists()
	}
	delete(s.codes, code)
	t.CreatedAt = time.Now().Truncate(time.Second)
	s.tokens[t.Token] = *t
	return nil
}

func (s *memStore) AccessTokenByToken(_ context.Context, token string) (*store.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok {
		return nil, notFound()
	}
	return &t, nil
}

func (s *memStore) DeleteAccessToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token]; !ok {
		return notFound()
	}
	delete(s.tokens, token)
	return nil
}

func (s *memStore) RevokeClientTokens(_ context.Context, userID int64, clientID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for token, t := range s.tokens {
		if t.UserID == userID && t.ClientID == clientID {
			delete(s.tokens, token)
			n++
		}
	}
	return n, nil
}

func (s *memStore) Connections(_ context.Context, userID int64) ([]store.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	counts := make(map[string]int64)
	for _, t := range s.tokens {
		if t.UserID == userID && t.ExpiresAt.After(now) {
			counts[t.ClientID]++
		}
	}

	var conns []store.Connection
	for _, a := range s.apps {
		if n, ok := counts[a.ClientID]; ok {
			conns = append(conns, store.Connection{App: cloneApp(a), TokenCount: n})
		}
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].App.ID < conns[j].App.ID })
	return conns, nil
}

// Clone helpers keep callers from mutating stored state through shared
// slices.

func cloneUser(u store.User) store.User {
	u.Permissions = append([]string(nil), u.Permissions...)
	return u
}

func cloneProject(p store.Project) store.Project {
	p.RequiredTags = append([]string(nil), p.RequiredTags...)
	return p
}

func cloneApp(a store.Application) store.Application {
	a.RedirectURIs = append([]string(nil), a.RedirectURIs...)
	a.Scopes = append([]string(nil), a.Scopes...)
	return a
}
