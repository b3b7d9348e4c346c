// Package config holds the global configuration for the service, loaded from
// built-in defaults, an auto-discovered authd.yaml, and AUTHD__ environment
// variables. Keys are registered with metadata so that unknown or misspelled
// keys can be flagged at startup.
package config

import (
	"net"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFile is the filename of the standard configuration file.
const ConfigFile = "authd.yaml"

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "AUTHD__"

// Config is a global koanf instance used to access application level
// configuration options.
//
// Config is loaded in the following order (later sources override earlier):
//  1. Registered defaults (applied lazily by EnsureDefaultsLoaded)
//  2. Auto-discovered authd.yaml (in init())
//  3. Environment variables with AUTHD__ prefix (in init())
//
// Environment variable transformation:
//   - AUTHD__SERVER__PORT → server.port
//   - AUTHD__OAUTH__CODE_EXPIRY → oauth.codeExpiry (underscores become camelCase)
var Config = koanf.New(".")

const (
	defaultHost = "localhost"
	defaultPort = "8080"
)

func init() {
	registerCoreKeys()

	// Look for an authd.yaml file in the current directory or any parent.
	if cfg := SearchForConfig(ConfigFile, "."); cfg != "" {
		if err := Config.Load(file.Provider(cfg), yaml.Parser()); err != nil {
			panic("error loading config: " + err.Error())
		}
	}

	if err := Config.Load(env.Provider(EnvPrefix, ".", TransformEnv), nil); err != nil {
		panic("error loading env config: " + err.Error())
	}
}

// EnsureDefaultsLoaded fills in registered defaults for keys that no loaded
// source provided. Call once at startup, after all keys are registered.
func EnsureDefaultsLoaded() {
	for key, val := range defaults() {
		if !Config.Exists(key) {
			Config.Set(key, val)
		}
	}
}

// LoadDefaults loads additional default configuration values into the global
// Config instance. Useful for tests that need specific settings.
func LoadDefaults(d map[string]interface{}) {
	if err := Config.Load(confmap.Provider(d, "."), nil); err != nil {
		panic("error loading config defaults: " + err.Error())
	}
}

// String returns the string value for the given key.
func String(key string) string {
	return Config.String(key)
}

// Int returns the int value for the given key.
func Int(key string) int {
	return Config.Int(key)
}

// Int64 returns the int64 value for the given key.
func Int64(key string) int64 {
	return Config.Int64(key)
}

// Bool returns the bool value for the given key.
func Bool(key string) bool {
	return Config.Bool(key)
}

// Duration returns the duration value for the given key. Duration strings
// like "5m", "1h", "30s" are parsed automatically.
func Duration(key string) time.Duration {
	return Config.Duration(key)
}

// Bytes returns the byte slice value for the given key.
func Bytes(key string) []byte {
	return Config.Bytes(key)
}

// Exists checks if the given key exists in the configuration.
func Exists(key string) bool {
	return Config.Exists(key)
}

func registerCoreKeys() {
	RegisterKeys(
		KeyInfo{
			Key:         "name",
			Description: "User-facing name that identifies the service",
			Type:        "string",
			Default:     "Auth Service",
		},
		KeyInfo{
			Key:         "address",
			Description: "External address for the service (used in URL and cookie construction)",
			Type:        "string",
			Default:     "http://" + net.JoinHostPort(defaultHost, defaultPort),
		},
		KeyInfo{
			Key:         "server.host",
			Description: "Host to bind the server to",
			Type:        "string",
			Default:     defaultHost,
		},
		KeyInfo{
			Key:         "server.port",
			Description: "Port to bind the server to",
			Type:        "int",
			Default:     defaultPort,
		},
		KeyInfo{
			Key:         "auth.signingKey",
			Description: "HMAC key used to sign session tokens",
			Type:        "string",
		},
		KeyInfo{
			Key:         "storage.driver",
			Description: "Backing store driver: sqlite, postgres, or memory",
			Type:        "string",
			Default:     "sqlite",
		},
		KeyInfo{
			Key:         "storage.dsn",
			Description: "Data source name for the selected driver",
			Type:        "string",
			Default:     "authd.db",
		},
		KeyInfo{
			Key:         "ratelimit.window",
			Description: "Window over which login and register attempts are counted",
			Type:        "duration",
			Default:     "3m",
		},
		KeyInfo{
			Key:         "ratelimit.limit",
			Description: "Attempts allowed per client address per window",
			Type:        "int",
			Default:     10,
		},
		KeyInfo{
			Key:         "oauth.codeExpiry",
			Description: "Lifetime of authorization codes",
			Type:        "duration",
			Default:     "10m",
		},
		KeyInfo{
			Key:         "oauth.tokenExpiry",
			Description: "Lifetime of access tokens",
			Type:        "duration",
			Default:     "876000h",
		},
		KeyInfo{
			Key:         "cache.userCacheSize",
			Description: "Maximum number of user records held in memory",
			Type:        "int",
			Default:     1024,
		},
		KeyInfo{
			Key:         "logging.dev",
			Description: "Use human friendly console logging instead of JSON",
			Type:        "bool",
			Default:     false,
		},
	)
}
