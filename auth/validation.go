package auth

import (
	"regexp"
	"strings"

	"github.com/AustinSDK/Authincation-service/errors"
)

// blockedUsernames can never be registered, regardless of availability.
var blockedUsernames = map[string]bool{
	"admin":     true,
	"root":      true,
	"webmaster": true,
	"test":      true,
	"null":      true,
}

var (
	usernameRe    = regexp.MustCompile(`^[a-z0-9]+$`)
	emailRe       = regexp.MustCompile(`^[a-zA-Z0-9._+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	displayNameRe = regexp.MustCompile(`^[a-zA-Z0-9 ]+$`)
)

func invalid(msg string) error {
	return errors.NewC(msg, errors.InvalidArgument)
}

// ValidateUsername normalizes and checks a username, returning the lowercase
// form used for storage and comparison.
func ValidateUsername(username string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if len(username) < 3 || len(username) > 30 {
		return "", invalid("Username must be between 3 and 30 characters")
	}
	if !usernameRe.MatchString(username) {
		return "", invalid("Username must contain only letters and numbers")
	}
	if blockedUsernames[username] {
		return "", invalid("Unallowed username")
	}
	return username, nil
}

// ValidatePassword checks password length bounds. Content is unrestricted.
func ValidatePassword(password string) error {
	if len(password) < 8 || len(password) > 128 {
		return invalid("Password must be between 8 and 128 characters")
	}
	return nil
}

// ValidateEmail normalizes and checks an email address, returning the
// trimmed lowercase form.
func ValidateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(email) > 254 || !emailRe.MatchString(email) {
		return "", invalid("Invalid email address")
	}
	local := email[:strings.IndexByte(email, '@')]
	if len(local) > 64 ||
		strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") ||
		strings.Contains(email, "..") {
		return "", invalid("Invalid email address")
	}
	return email, nil
}

// ValidateDisplayName normalizes and checks a display name.
func ValidateDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 || len(name) > 50 {
		return "", invalid("Display name must be between 2 and 50 characters")
	}
	if !displayNameRe.MatchString(name) {
		return "", invalid("Display name must contain only letters, numbers, and spaces")
	}
	return name, nil
}
