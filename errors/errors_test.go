package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, OK, CodeOf(nil), "code should be OK")

	err := fmt.Errorf("test error")
	assert.Equal(t, Unknown, CodeOf(err), "code should be unknown")

	err = WithCode(err, InvalidArgument)
	assert.Equal(t, InvalidArgument, CodeOf(err), "code should be InvalidArgument")

	err = WithCode(err, AlreadyExists)
	assert.Equal(t, AlreadyExists, CodeOf(err), "code should be AlreadyExists")

	err = WrapPrefix(err, "wrapped", 0)
	assert.Equal(t, AlreadyExists, CodeOf(err), "code should still be AlreadyExists")
}

func TestHttpStatusCode(t *testing.T) {
	assert.Equal(t, 200, HTTPStatusCode(nil), "non errors should 200")

	err := fmt.Errorf("test error")
	assert.Equal(t, 500, HTTPStatusCode(err), "should default to 500")

	err = WithCode(err, NotFound)
	assert.Equal(t, 404, HTTPStatusCode(err), "NotFound should map to 404")

	err = WithHTTPStatusCode(err, 410)
	assert.Equal(t, 410, HTTPStatusCode(err), "explicit status should override the code mapping")

	err = WrapPrefix(err, "wrapped", 0)
	assert.Equal(t, 410, HTTPStatusCode(err), "explicit status should still be 410")
}

func TestPrefix(t *testing.T) {
	err := fmt.Errorf("test error")
	err = WrapPrefix(err, "wrapped", 0)
	assert.Equal(t, "wrapped: test error", err.Error(), "error should have prefix")
}

func TestPublicMessage(t *testing.T) {
	err := NewC("database exploded", Internal)
	assert.Equal(t, "Internal server error", PublicMessage(err), "internal detail should not leak")

	err = err.WithPublicMessage("Something went wrong")
	assert.Equal(t, "Something went wrong", PublicMessage(err))

	verr := NewC("Invalid credentials", Unauthenticated)
	assert.Equal(t, "Invalid credentials", PublicMessage(verr), "classified errors surface their message")

	assert.Equal(t, "Internal server error", PublicMessage(fmt.Errorf("raw")), "plain errors should be masked")
}

func TestWrappedError(t *testing.T) {
	err := NewC("test error", InvalidArgument)
	wrappedErr := fmt.Errorf("%w : wrapped error", err)

	assert.Equal(t, InvalidArgument, CodeOf(wrappedErr))
}

func TestMark(t *testing.T) {
	err := NewC("test error", InvalidArgument).WithPublicMessage("Bad input")
	markedErr := Mark(err, 0)

	assert.True(t, Is(markedErr, err), "Marked error should still satisfy Is")
	assert.Equal(t, InvalidArgument, CodeOf(markedErr))
	assert.Equal(t, "Bad input", PublicMessage(markedErr))
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "invalid_argument", InvalidArgument.String())
	assert.Equal(t, "unknown", Code(999).String())
}
