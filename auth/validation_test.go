package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr string
	}{
		{"valid", "alice", "alice", ""},
		{"uppercase normalized", "  ALICE ", "alice", ""},
		{"digits allowed", "alice99", "alice99", ""},
		{"too short", "ab", "", "between 3 and 30"},
		{"too long", strings.Repeat("a", 31), "", "between 3 and 30"},
		{"punctuation rejected", "al_ice", "", "letters and numbers"},
		{"spaces rejected", "al ice", "", "letters and numbers"},
		{"blocked admin", "admin", "", "Unallowed username"},
		{"blocked mixed case", "Admin", "", "Unallowed username"},
		{"blocked root", "root", "", "Unallowed username"},
		{"blocked null", "null", "", "Unallowed username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateUsername(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("12345678"))
	assert.NoError(t, ValidatePassword(strings.Repeat("x", 128)))
	assert.Error(t, ValidatePassword("1234567"))
	assert.Error(t, ValidatePassword(strings.Repeat("x", 129)))
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"valid", "user@example.com", "user@example.com", false},
		{"normalized", "  User@Example.COM ", "user@example.com", false},
		{"plus tag", "user+tag@example.com", "user+tag@example.com", false},
		{"missing at", "userexample.com", "", true},
		{"missing tld", "user@example", "", true},
		{"short tld", "user@example.c", "", true},
		{"leading dot", ".user@example.com", "", true},
		{"trailing dot", "user.@example.com", "", true},
		{"double dot", "us..er@example.com", "", true},
		{"long local part", strings.Repeat("a", 65) + "@example.com", "", true},
		{"over 254 chars", strings.Repeat("a", 250) + "@ex.com", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateEmail(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateDisplayName(t *testing.T) {
	got, err := ValidateDisplayName("  Alice Smith 2 ")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith 2", got)

	_, err = ValidateDisplayName("A")
	assert.Error(t, err)
	_, err = ValidateDisplayName(strings.Repeat("a", 51))
	assert.Error(t, err)
	_, err = ValidateDisplayName("Alice <script>")
	assert.Error(t, err)
}
