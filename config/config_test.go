package config

import (
	"testing"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformEnv(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AUTHD__SERVER__PORT", "server.port"},
		{"AUTHD__STORAGE__DRIVER", "storage.driver"},
		{"AUTHD__OAUTH__CODE_EXPIRY", "oauth.codeExpiry"},
		{"AUTHD__AUTH__SIGNING_KEY", "auth.signingKey"},
		{"AUTHD__NAME", "name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TransformEnv(tt.in), tt.in)
	}
}

func TestDefaults(t *testing.T) {
	EnsureDefaultsLoaded()

	assert.Equal(t, "sqlite", String("storage.driver"))
	assert.Equal(t, 10, Int("ratelimit.limit"))
	assert.NotZero(t, Duration("oauth.codeExpiry"))
}

func TestValidateKeys(t *testing.T) {
	k := koanf.New(".")
	require.NoError(t, k.Load(confmap.Provider(map[string]interface{}{
		"storage.driver":  "sqlite",
		"storage.dsm":     "oops",
		"ratelimit.limit": 5,
	}, "."), nil))

	warnings := ValidateKeys(k)
	require.Len(t, warnings, 1)
	assert.Equal(t, "storage.dsm", warnings[0].Key)
	assert.Contains(t, warnings[0].Suggestions, "storage.dsn")
	assert.Contains(t, warnings[0].String(), "Did you mean")
}

func TestFindSimilarKeys(t *testing.T) {
	similar := FindSimilarKeys("server.prot", 3)
	assert.Contains(t, similar, "server.port")

	assert.Empty(t, FindSimilarKeys("completely.unrelated.key.name", 3))
}

func TestFormatValidationWarnings(t *testing.T) {
	assert.Empty(t, FormatValidationWarnings(nil))

	out := FormatValidationWarnings([]ValidationWarning{{Key: "bogus"}})
	assert.Contains(t, out, "'bogus' is not a known config key")
}
