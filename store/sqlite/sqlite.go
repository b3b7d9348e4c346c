// Package sqlite provides a SQLite implementation of store.Store. Tables are
// created optimistically on open and a startup sweep normalizes legacy
// permission columns.
//
// Examples:
//
//	s, err := sqlite.Open("authd.db")
//	s, err := sqlite.Open(":memory:")
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/AustinSDK/Authincation-service/errors"
	"github.com/AustinSDK/Authincation-service/perm"
	"github.com/AustinSDK/Authincation-service/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	email_verified INTEGER NOT NULL DEFAULT 0,
	password_hash TEXT NOT NULL,
	permissions TEXT DEFAULT '[]',
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	token TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS projects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	link TEXT NOT NULL DEFAULT '',
	required_tags TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS oauth_applications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	client_id TEXT NOT NULL UNIQUE,
	client_secret TEXT NOT NULL UNIQUE,
	redirect_uris TEXT NOT NULL DEFAULT '[]',
	scopes TEXT NOT NULL DEFAULT '[]',
	owner_id INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS oauth_authorization_codes (
	code TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	user_id INTEGER NOT NULL,
	redirect_uri TEXT NOT NULL,
	scope TEXT NOT NULL DEFAULT '',
	expires_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS oauth_access_tokens (
	access_token TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	user_id INTEGER NOT NULL,
	scope TEXT NOT NULL DEFAULT '',
	expires_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Legacy rows may hold NULL, empty, or malformed permission columns. Reads
// tolerate them regardless, but the sweep keeps the table clean for anything
// else that inspects it.
const permissionSweep = `
UPDATE users SET permissions = '[]'
WHERE permissions IS NULL OR trim(permissions) = '' OR json_valid(permissions) = 0
`

// Open returns a sqlite backed store, creating tables as needed.
func Open(dsn string) (store.Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	// A single connection sidesteps SQLITE_BUSY between concurrent writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.WrapPrefix(err, "sqlite: creating schema", 0)
	}
	if _, err := db.Exec(permissionSweep); err != nil {
		db.Close()
		return nil, errors.WrapPrefix(err, "sqlite: normalizing permissions", 0)
	}
	return &sqliteStore{db: db}, nil
}

type sqliteStore struct {
	db *sql.DB
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// Users

const userColumns = "id, username, display_name, email, email_verified, password_hash, permissions, created_at"

func (s *sqliteStore) CreateUser(ctx context.Context, u *store.User) error {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, display_name, email, email_verified, password_hash, permissions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.DisplayName, u.Email, u.EmailVerified, u.PasswordHash,
		perm.Encode(u.Permissions), now.Unix())
	if err != nil {
		return translateError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return translateError(err)
	}
	u.ID = id
	u.CreatedAt = time.Unix(now.Unix(), 0)
	return nil
}

func (s *sqliteStore) UserByID(ctx context.Context, id int64) (*store.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

func (s *sqliteStore) UserByUsername(ctx context.Context, username string) (*store.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE LOWER(username) = LOWER(?)", username)
	return scanUser(row)
}

func (s *sqliteStore) UserByEmail(ctx context.Context, email string) (*store.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUser(row)
}

func (s *sqliteStore) UpdateUserPermissions(ctx context.Context, id int64, tags []string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET permissions = ? WHERE id = ?", perm.Encode(tags), id)
	return requireRow(res, err)
}

func (s *sqliteStore) ResetUserPassword(ctx context.Context, id int64, passwordHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateError(err)
	}
	res, err := tx.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
	if err := requireRow(res, err); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", id); err != nil {
		tx.Rollback()
		return translateError(err)
	}
	return translateError(tx.Commit())
}

func (s *sqliteStore) DeleteUser(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateError(err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", id); err != nil {
		tx.Rollback()
		return translateError(err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err := requireRow(res, err); err != nil {
		tx.Rollback()
		return err
	}
	return translateError(tx.Commit())
}

// Sessions

func (s *sqliteStore) CreateSession(ctx context.Context, sess *store.Session) error {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (user_id, token, created_at) VALUES (?, ?, ?)",
		sess.UserID, sess.Token, now.Unix())
	if err != nil {
		return translateError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return translateError(err)
	}
	sess.ID = id
	sess.CreatedAt = time.Unix(now.Unix(), 0)
	return nil
}

func (s *sqliteStore) SessionByToken(ctx context.Context, token string) (*store.Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, token, created_at FROM sessions WHERE token = ?", token)
	return scanSession(row)
}

func (s *sqliteStore) SessionByID(ctx context.Context, id int64) (*store.Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, token, created_at FROM sessions WHERE id = ?", id)
	return scanSession(row)
}

func (s *sqliteStore) SessionsByUser(ctx context.Context, userID int64) ([]store.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, token, created_at FROM sessions WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var sessions []store.Session
	for rows.Next() {
		var sess store.Session
		var created int64
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Token, &created); err != nil {
			return nil, translateError(err)
		}
		sess.CreatedAt = time.Unix(created, 0)
		sessions = append(sessions, sess)
	}
	return sessions, translateError(rows.Err())
}

func (s *sqliteStore) DeleteSession(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	return requireRow(res, err)
}

// Projects

const projectColumns = "id, name, description, link, required_tags, created_at"

func (s *sqliteStore) CreateProject(ctx context.Context, p *store.Project) error {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (name, description, link, required_tags, created_at) VALUES (?, ?, ?, ?, ?)",
		p.Name, p.Description, p.Link, perm.Encode(p.RequiredTags), now.Unix())
	if err != nil {
		return translateError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return translateError(err)
	}
	p.ID = id
	p.CreatedAt = time.Unix(now.Unix(), 0)
	return nil
}

func (s *sqliteStore) ProjectByID(ctx context.Context, id int64) (*store.Project, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	return scanProject(row)
}

func (s *sqliteStore) UpdateProject(ctx context.Context, p *store.Project) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE projects SET name = ?, description = ?, link = ?, required_tags = ? WHERE id = ?",
		p.Name, p.Description, p.Link, perm.Encode(p.RequiredTags), p.ID)
	return requireRow(res, err)
}

func (s *sqliteStore) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return requireRow(res, err)
}

func (s *sqliteStore) ListProjects(ctx context.Context) ([]store.Project, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY id")
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var projects []store.Project
	for rows.Next() {
		var p store.Project
		var tags string
		var created int64
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Link, &tags, &created); err != nil {
			return nil, translateError(err)
		}
		p.RequiredTags = perm.Parse(tags)
		p.CreatedAt = time.Unix(created, 0)
		projects = append(projects, p)
	}
	return projects, translateError(rows.Err())
}

// Applications

const appColumns = "id, name, description, client_id, client_secret, redirect_uris, scopes, owner_id, created_at"

func (s *sqliteStore) CreateApplication(ctx context.Context, a *store.Application) error {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO oauth_applications (name, description, client_id, client_secret, redirect_uris, scopes, owner_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Name, a.Description, a.ClientID, a.ClientSecret,
		encodeList(a.RedirectURIs), encodeList(a.Scopes), a.OwnerID, now.Unix())
	if err != nil {
		return translateError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return translateError(err)
	}
	a.ID = id
	a.CreatedAt = time.Unix(now.Unix(), 0)
	return nil
}

func (s *sqliteStore) ApplicationByID(ctx context.Context, id int64) (*store.Application, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+appColumns+" FROM oauth_applications WHERE id = ?", id)
	return scanApplication(row)
}

func (s *sqliteStore) ApplicationByClientID(ctx context.Context, clientID string) (*store.Application, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+appColumns+" FROM oauth_applications WHERE client_id = ?", clientID)
	return scanApplication(row)
}

func (s *sqliteStore) ApplicationsByOwner(ctx context.Context, ownerID int64) ([]store.Application, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+appColumns+" FROM oauth_applications WHERE owner_id = ? ORDER BY id", ownerID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()
	return collectApplications(rows)
}

func (s *sqliteStore) ListApplications(ctx context.Context) ([]store.Application, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+appColumns+" FROM oauth_applications ORDER BY id")
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()
	return collectApplications(rows)
}

func (s *sqliteStore) UpdateApplication(ctx context.Context, a *store.Application) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE oauth_applications SET name = ?, description = ?, redirect_uris = ?, scopes = ? WHERE id = ?",
		a.Name, a.Description, encodeList(a.RedirectURIs), encodeList(a.Scopes), a.ID)
	return requireRow(res, err)
}

func (s *sqliteStore) DeleteApplication(ctx context.Context, id int64) (store.CascadeResult, error) {
	var result store.CascadeResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, translateError(err)
	}

	var clientID string
	err = tx.QueryRowContext(ctx,
		"SELECT client_id FROM oauth_applications WHERE id = ?", id).Scan(&clientID)
	if err != nil {
		tx.Rollback()
		return result, translateError(err)
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM oauth_authorization_codes WHERE client_id = ?", clientID)
	if err != nil {
		tx.Rollback()
		return result, translateError(err)
	}
	result.CodesDeleted, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx,
		"DELETE FROM oauth_access_tokens WHERE client_id = ?", clientID)
	if err != nil {
		tx.Rollback()
		return result, translateError(err)
	}
	result.TokensDeleted, _ = res.RowsAffected()

	if _, err := tx.ExecContext(ctx, "DELETE FROM oauth_applications WHERE id = ?", id); err != nil {
		tx.Rollback()
		return result, translateError(err)
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return store.CascadeResult{}, translateError(err)
	}
	return result, nil
}

// Authorization codes and access tokens

func (s *sqliteStore) CreateAuthCode(ctx context.Context, c *store.AuthCode) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO oauth_authorization_codes (code, client_id, user_id, redirect_uri, scope, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Code, c.ClientID, c.UserID, c.RedirectURI, c.Scope, c.ExpiresAt.Unix(), now.Unix())
	if err != nil {
		return translateError(err)
	}
	c.CreatedAt = time.Unix(now.Unix(), 0)
	return nil
}

func (s *sqliteStore) AuthCode(ctx context.Context, code, clientID, redirectURI string) (*store.AuthCode, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT code, client_id, user_id, redirect_uri, scope, expires_at, created_at
		 FROM oauth_authorization_codes
		 WHERE code = ? AND client_id = ? AND redirect_uri = ?`,
		code, clientID, redirectURI)

	var c store.AuthCode
	var expires, created int64
	err := row.Scan(&c.Code, &c.ClientID, &c.UserID, &c.RedirectURI, &c.Scope, &expires, &created)
	if err != nil {
		return nil, translateError(err)
	}
	c.ExpiresAt = time.Unix(expires, 0)
	c.CreatedAt = time.Unix(created, 0)
	return &c, nil
}

func (s *sqliteStore) DeleteAuthCode(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM oauth_authorization_codes WHERE code = ?", code)
	return requireRow(res, err)
}

func (s *sqliteStore) ConsumeAuthCode(ctx context.Context, code string, t *store.AccessToken) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateError(err)
	}

	// The delete settles races between concurrent exchanges: only one caller
	// observes an affected row, every other sees ErrNotFound.
	res, err := tx.ExecContext(ctx, "DELETE FROM oauth_authorization_codes WHERE code = ?", code)
	if err := requireRow(res, err); err != nil {
		tx.Rollback()
		return err
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO oauth_access_tokens (access_token, client_id, user_id, scope, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.Token, t.ClientID, t.UserID, t.Scope, t.ExpiresAt.Unix(), now.Unix())
	if err != nil {
		tx.Rollback()
		return translateError(err)
	}
	t.CreatedAt = time.Unix(now.Unix(), 0)

	return translateError(tx.Commit())
}

func (s *sqliteStore) AccessTokenByToken(ctx context.Context, token string) (*store.AccessToken, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT access_token, client_id, user_id, scope, expires_at, created_at
		 FROM oauth_access_tokens WHERE access_token = ?`, token)

	var t store.AccessToken
	var expires, created int64
	err := row.Scan(&t.Token, &t.ClientID, &t.UserID, &t.Scope, &expires, &created)
	if err != nil {
		return nil, translateError(err)
	}
	t.ExpiresAt = time.Unix(expires, 0)
	t.CreatedAt = time.Unix(created, 0)
	return &t, nil
}

func (s *sqliteStore) DeleteAccessToken(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM oauth_access_tokens WHERE access_token = ?", token)
	return requireRow(res, err)
}

func (s *sqliteStore) RevokeClientTokens(ctx context.Context, userID int64, clientID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM oauth_access_tokens WHERE user_id = ? AND client_id = ?", userID, clientID)
	if err != nil {
		return 0, translateError(err)
	}
	n, err := res.RowsAffected()
	return n, translateError(err)
}

func (s *sqliteStore) Connections(ctx context.Context, userID int64) ([]store.Connection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.name, a.description, a.client_id, a.client_secret, a.redirect_uris, a.scopes, a.owner_id, a.created_at, COUNT(t.access_token)
		 FROM oauth_access_tokens t
		 JOIN oauth_applications a ON a.client_id = t.client_id
		 WHERE t.user_id = ? AND t.expires_at > ?
		 GROUP BY a.id
		 ORDER BY a.id`,
		userID, time.Now().Unix())
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var conns []store.Connection
	for rows.Next() {
		var c store.Connection
		var uris, scopes string
		var created int64
		err := rows.Scan(&c.App.ID, &c.App.Name, &c.App.Description, &c.App.ClientID,
			&c.App.ClientSecret, &uris, &scopes, &c.App.OwnerID, &created, &c.TokenCount)
		if err != nil {
			return nil, translateError(err)
		}
		c.App.RedirectURIs = decodeList(uris)
		c.App.Scopes = decodeList(scopes)
		c.App.CreatedAt = time.Unix(created, 0)
		conns = append(conns, c)
	}
	return conns, translateError(rows.Err())
}

// Scan helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*store.User, error) {
	var u store.User
	var permissions sql.NullString
	var created int64
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email, &u.EmailVerified,
		&u.PasswordHash, &permissions, &created)
	if err != nil {
		return nil, translateError(err)
	}
	u.Permissions = perm.Parse(permissions.String)
	u.CreatedAt = time.Unix(created, 0)
	return &u, nil
}

func scanSession(row rowScanner) (*store.Session, error) {
	var sess store.Session
	var created int64
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.Token, &created); err != nil {
		return nil, translateError(err)
	}
	sess.CreatedAt = time.Unix(created, 0)
	return &sess, nil
}

func scanProject(row rowScanner) (*store.Project, error) {
	var p store.Project
	var tags string
	var created int64
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Link, &tags, &created); err != nil {
		return nil, translateError(err)
	}
	p.RequiredTags = perm.Parse(tags)
	p.CreatedAt = time.Unix(created, 0)
	return &p, nil
}

func scanApplication(row rowScanner) (*store.Application, error) {
	var a store.Application
	var uris, scopes string
	var created int64
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.ClientID, &a.ClientSecret,
		&uris, &scopes, &a.OwnerID, &created)
	if err != nil {
		return nil, translateError(err)
	}
	a.RedirectURIs = decodeList(uris)
	a.Scopes = decodeList(scopes)
	a.CreatedAt = time.Unix(created, 0)
	return &a, nil
}

func collectApplications(rows *sql.Rows) ([]store.Application, error) {
	var apps []store.Application
	for rows.Next() {
		var a store.Application
		var uris, scopes string
		var created int64
		err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.ClientID, &a.ClientSecret,
			&uris, &scopes, &a.OwnerID, &created)
		if err != nil {
			return nil, translateError(err)
		}
		a.RedirectURIs = decodeList(uris)
		a.Scopes = decodeList(scopes)
		a.CreatedAt = time.Unix(created, 0)
		apps = append(apps, a)
	}
	return apps, translateError(rows.Err())
}

func encodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeList(raw string) []string {
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil || items == nil {
		return []string{}
	}
	return items
}

// requireRow translates exec errors and maps zero affected rows to
// store.ErrNotFound.
func requireRow(res sql.Result, err error) error {
	if err != nil {
		return translateError(err)
	}
	if n, err := res.RowsAffected(); n == 0 || err != nil {
		return errors.Mark(store.ErrNotFound, 1)
	}
	return nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return errors.Mark(store.ErrNotFound, 1)
	}
	if sqlErr, ok := err.(sqlite3.Error); ok {
		switch sqlErr.Code {
		case sqlite3.ErrNotFound:
			return errors.Mark(store.ErrNotFound, 1)
		case sqlite3.ErrConstraint:
			return errors.Mark(store.ErrAlreadyExists, 1)
		}
	}
	return errors.Wrap(err, 1)
}
