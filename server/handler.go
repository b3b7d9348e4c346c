package server

import (
	"encoding/json"
	"net/http"

	"github.com/AustinSDK/Authincation-service/errors"
	"github.com/AustinSDK/Authincation-service/logging"
	"github.com/AustinSDK/Authincation-service/oauth"
)

// jsonHandler is a handler returning a value to encode, or an error that is
// translated to a `{"message": ...}` response. The value may implement
// statusCoder to override the 200 default.
type jsonHandler func(r *http.Request) (any, error)

// statusCoder lets a response value pick its own HTTP status.
type statusCoder interface {
	statusCode() int
}

// cookieSetter lets a response value attach a cookie to the response.
type cookieSetter interface {
	cookie() *http.Cookie
}

// messageResponse is the plain `{"message": ...}` payload used for status
// style responses.
type messageResponse struct {
	Message string `json:"message"`
	status  int
}

func (m messageResponse) statusCode() int {
	if m.status != 0 {
		return m.status
	}
	return http.StatusOK
}

// created wraps a payload so it is written with a 201 status.
type created struct {
	payload any
}

func (created) statusCode() int { return http.StatusCreated }

func (c created) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.payload)
}

func wrapJSON(fn jsonHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, err := fn(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		status := http.StatusOK
		if sc, ok := resp.(statusCoder); ok {
			status = sc.statusCode()
		}
		if cs, ok := resp.(cookieSetter); ok {
			if c := cs.cookie(); c != nil {
				http.SetCookie(w, c)
			}
		}
		writeJSON(w, r, status, resp)
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		logging.Errorw(r.Context(), "error encoding response", "error", err)
		http.Error(w, `{"message": "Internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

// writeError renders an error as `{"message": ...}` using its public message,
// so internal detail never reaches the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatusCode(err)
	if status >= 500 {
		logging.Errorw(r.Context(), "handler error", "error", err,
			"req.method", r.Method, "req.url", r.URL.String())
	} else {
		logging.Infow(r.Context(), "request rejected", "error", err,
			"req.method", r.Method, "req.url", r.URL.String(), "status", status)
	}
	writeJSON(w, r, status, map[string]string{"message": errors.PublicMessage(err)})
}

// writeOAuthError renders an error in the RFC 6749 shape used by the OAuth
// protocol endpoints.
func writeOAuthError(w http.ResponseWriter, r *http.Request, err error) {
	code, description, status := oauth.Describe(err)
	if status >= 500 {
		logging.Errorw(r.Context(), "oauth handler error", "error", err)
	}
	writeJSON(w, r, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.NewC("Request body is required", errors.InvalidArgument)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.WithCode(errors.WrapPrefix(err, "Invalid request body", 0), errors.InvalidArgument).
			WithPublicMessage("Invalid request body")
	}
	return nil
}
