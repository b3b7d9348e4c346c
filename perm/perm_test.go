package perm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"valid array", `["admin","editor"]`, []string{"admin", "editor"}},
		{"empty array", `[]`, []string{}},
		{"empty string", "", []string{}},
		{"whitespace", "   ", []string{}},
		{"json null", "null", []string{}},
		{"malformed", `["admin"`, []string{}},
		{"wrong type", `{"admin":true}`, []string{}},
		{"number elements", `[1,2]`, []string{}},
		{"drops empty tags", `["", "editor"]`, []string{"editor"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	tags := []string{"editor", "beta"}
	assert.Equal(t, tags, Parse(Encode(tags)))
	assert.Equal(t, "[]", Encode(nil))
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name     string
		user     []string
		required []string
		want     bool
	}{
		{"public resource, anonymous", nil, nil, true},
		{"public resource, tagged user", []string{"editor"}, []string{}, true},
		{"single tag match", []string{"editor"}, []string{"editor"}, true},
		{"single tag missing", []string{"beta"}, []string{"editor"}, false},
		{"requires all tags", []string{"editor"}, []string{"editor", "beta"}, false},
		{"holds all tags", []string{"editor", "beta"}, []string{"editor", "beta"}, true},
		{"admin wildcard", []string{"admin"}, []string{"editor", "beta"}, true},
		{"anonymous denied", nil, []string{"editor"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.user, tt.required))
		})
	}
}

// Any tag set should satisfy itself.
func TestAllowedReflexive(t *testing.T) {
	sets := [][]string{
		{},
		{"editor"},
		{"editor", "beta", "internal"},
		{"admin"},
	}
	for _, s := range sets {
		assert.True(t, Allowed(s, s))
	}
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin([]string{"editor", "admin"}))
	assert.False(t, IsAdmin([]string{"editor"}))
	assert.False(t, IsAdmin(nil))
}

func TestCanEdit(t *testing.T) {
	assert.True(t, CanEdit([]string{"editor"}))
	assert.True(t, CanEdit([]string{"admin"}))
	assert.False(t, CanEdit([]string{"beta"}))
	assert.False(t, CanEdit(nil))
}
