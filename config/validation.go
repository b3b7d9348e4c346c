package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/v2"
)

// ValidationWarning represents a configuration warning for an unknown or
// potentially misspelled key.
type ValidationWarning struct {
	Key         string
	Suggestions []string
}

func (w ValidationWarning) String() string {
	msg := fmt.Sprintf("'%s' is not a known config key", w.Key)
	switch len(w.Suggestions) {
	case 0:
	case 1:
		msg += fmt.Sprintf(". Did you mean '%s'?", w.Suggestions[0])
	default:
		msg += ". Did you mean one of: " + strings.Join(w.Suggestions, ", ") + "?"
	}
	return msg
}

// ValidateKeys checks all loaded configuration keys against the registry and
// returns warnings for unknown keys, with suggestions for similar registered
// keys. Keys beneath a registered namespace do not warn.
func ValidateKeys(k *koanf.Koanf) []ValidationWarning {
	var warnings []ValidationWarning
	for _, key := range k.Keys() {
		if _, exists := LookupKey(key); exists {
			continue
		}
		if hasRegisteredPrefix(key) {
			continue
		}
		warnings = append(warnings, ValidationWarning{
			Key:         key,
			Suggestions: FindSimilarKeys(key, 3),
		})
	}
	return warnings
}

// hasRegisteredPrefix checks if any registered key is a prefix of the given
// key, so namespaces can be registered without enumerating every sub-key.
func hasRegisteredPrefix(key string) bool {
	parts := strings.Split(key, ".")
	for i := len(parts) - 1; i > 0; i-- {
		if _, exists := LookupKey(strings.Join(parts[:i], ".")); exists {
			return true
		}
	}
	return false
}

// FormatValidationWarnings formats validation warnings into a readable
// multi-line message, or "" if there are none.
func FormatValidationWarnings(warnings []ValidationWarning) string {
	if len(warnings) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("configuration warnings detected:\n")
	for _, warning := range warnings {
		sb.WriteString(fmt.Sprintf("  - %s\n", warning.String()))
	}
	return sb.String()
}
