// Package oauth implements an OAuth 2.0 authorization code provider:
// application registration, the authorize and token endpoints' logic, token
// validation, and per-client revocation. Wire error codes follow RFC 6749 via
// the go-oauth2 vocabulary.
package oauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"strings"

	oautherrors "github.com/go-oauth2/oauth2/v4/errors"

	"github.com/AustinSDK/Authincation-service/errors"
)

const (
	clientIDBytes     = 16
	clientSecretBytes = 32
	codeBytes         = 32
	tokenBytes        = 32
)

// ErrNotAppOwner is returned when a caller tries to manage an application
// they do not own.
var ErrNotAppOwner = errors.NewC("You do not own this application", errors.PermissionDenied)

// TokenResponse is the token endpoint's success payload. ExpiresIn is a
// pointer so that clients with no practical expiry see an explicit null
// rather than a misleading zero.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   *int64 `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// wireErrors lists every RFC 6749 error the service can emit, in the order
// Describe checks them.
var wireErrors = []error{
	oautherrors.ErrInvalidRequest,
	oautherrors.ErrInvalidClient,
	oautherrors.ErrInvalidGrant,
	oautherrors.ErrUnsupportedResponseType,
	oautherrors.ErrUnsupportedGrantType,
	oautherrors.ErrAccessDenied,
	oautherrors.ErrServerError,
}

// Describe maps an error onto its RFC 6749 wire code, registered description,
// and HTTP status. Unrecognized errors collapse to server_error.
func Describe(err error) (code, description string, status int) {
	for _, wire := range wireErrors {
		if errors.Is(err, wire) {
			status = oautherrors.StatusCodes[wire]
			if status == 0 {
				status = 400
			}
			return wire.Error(), oautherrors.Descriptions[wire], status
		}
	}
	se := oautherrors.ErrServerError
	return se.Error(), oautherrors.Descriptions[se], oautherrors.StatusCodes[se]
}

// NewCredentials mints a client id and secret pair. The id is 16 random
// bytes and the secret 32, both hex encoded.
func NewCredentials() (clientID, clientSecret string, err error) {
	if clientID, err = randomHex(clientIDBytes); err != nil {
		return "", "", err
	}
	if clientSecret, err = randomHex(clientSecretBytes); err != nil {
		return "", "", err
	}
	return clientID, clientSecret, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, 1)
	}
	return hex.EncodeToString(buf), nil
}

// secretEqual compares client secrets in constant time.
func secretEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// validateRedirectURIs checks that every URI parses as an absolute URL.
func validateRedirectURIs(uris []string) error {
	if len(uris) == 0 {
		return errors.NewC("At least one redirect URI is required", errors.InvalidArgument)
	}
	for _, raw := range uris {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return errors.Codef(errors.InvalidArgument, "Invalid redirect URI: %s", raw)
		}
	}
	return nil
}

// redirectWithCode appends code and optional state to a redirect URI,
// preserving any query string it already carries.
func redirectWithCode(redirectURI, code, state string) string {
	sep := "?"
	if strings.Contains(redirectURI, "?") {
		sep = "&"
	}
	target := redirectURI + sep + "code=" + url.QueryEscape(code)
	if state != "" {
		target += "&state=" + url.QueryEscape(state)
	}
	return target
}
