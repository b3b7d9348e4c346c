package config

import (
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

// KeyInfo contains metadata about a known configuration key.
type KeyInfo struct {
	Key         string      // The full config key path (e.g., "server.port")
	Description string      // Human-readable description of what this config does
	Type        string      // Type hint: "string", "int", "bool", "duration", etc.
	Default     interface{} // Optional default value
}

// registry holds all known configuration keys.
var (
	registry   = make(map[string]KeyInfo)
	registryMu sync.RWMutex
)

// RegisterKeys registers configuration keys with metadata, documenting the
// keys the service expects and their defaults.
func RegisterKeys(infos ...KeyInfo) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, info := range infos {
		registry[info.Key] = info
	}
}

// LookupKey returns metadata for a registered config key.
func LookupKey(key string) (KeyInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, exists := registry[key]
	return info, exists
}

// AllKeys returns all registered config keys sorted alphabetically.
func AllKeys() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// defaults returns registered keys that carry a default value.
func defaults() map[string]interface{} {
	registryMu.RLock()
	defer registryMu.RUnlock()

	d := make(map[string]interface{})
	for key, info := range registry {
		if info.Default != nil {
			d[key] = info.Default
		}
	}
	return d
}

// FindSimilarKeys finds registered keys that are similar to the given key,
// sorted most-similar first. Similarity is Levenshtein edit distance with a
// small bonus for keys in the same namespace, capped at distance 3.
func FindSimilarKeys(key string, maxResults int) []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	type scored struct {
		key   string
		score int
	}

	prefix := keyPrefix(key)
	var candidates []scored
	for registered := range registry {
		score := levenshtein.ComputeDistance(key, registered)
		if prefix != "" && prefix == keyPrefix(registered) && score > 0 {
			score--
		}
		if score <= 3 {
			candidates = append(candidates, scored{registered, score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score < candidates[j].score
		}
		return candidates[i].key < candidates[j].key
	})

	result := make([]string, 0, maxResults)
	for i := 0; i < len(candidates) && i < maxResults; i++ {
		result = append(result, candidates[i].key)
	}
	return result
}

// keyPrefix extracts the namespace of a hierarchical key. For
// "storage.sqlite.dsn" it returns "storage.sqlite".
func keyPrefix(key string) string {
	lastDot := strings.LastIndex(key, ".")
	if lastDot == -1 {
		return ""
	}
	return key[:lastDot]
}
