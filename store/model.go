package store

import "time"

// User is an identity record. Usernames are stored lowercase and are unique
// case-insensitively. Permissions is the normalized tag set; the raw column
// may hold legacy junk which the store normalizes on read.
type User struct {
	ID            int64
	Username      string
	DisplayName   string
	Email         string
	EmailVerified bool
	PasswordHash  string
	Permissions   []string
	CreatedAt     time.Time
}

// Session is a bearer credential bound to exactly one user. Multiple
// concurrent sessions per user are permitted.
type Session struct {
	ID        int64
	UserID    int64
	Token     string
	CreatedAt time.Time
}

// Project is a protected resource descriptor. RequiredTags is the tag set a
// user must fully hold to see the project; empty means public.
type Project struct {
	ID           int64
	Name         string
	Description  string
	Link         string
	RequiredTags []string
	CreatedAt    time.Time
}

// Application is a registered OAuth client.
type Application struct {
	ID           int64
	Name         string
	Description  string
	ClientID     string
	ClientSecret string
	RedirectURIs []string
	Scopes       []string
	OwnerID      int64
	CreatedAt    time.Time
}

// AuthCode is a single-use authorization code bound to a client, user, and
// redirect URI.
type AuthCode struct {
	Code        string
	ClientID    string
	UserID      int64
	RedirectURI string
	Scope       string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// AccessToken is a bearer credential scoped to one client and user pair.
type AccessToken struct {
	Token     string
	ClientID  string
	UserID    int64
	Scope     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// CascadeResult reports the rows removed by an application delete cascade.
type CascadeResult struct {
	CodesDeleted  int64
	TokensDeleted int64
}

// Connection summarizes an application holding live access tokens for a user.
type Connection struct {
	App        Application
	TokenCount int64
}
