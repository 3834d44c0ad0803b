// Package config loads the two layers of deployment configuration: small
// env-var helpers for connection settings read once at boot, and a JSON
// tuning file for default module configuration (what startup_param
// reports as defaults before a start call overrides them).
package config

import (
	"os"
	"strconv"
)

// Str returns the value of the environment variable key, or fallback if
// unset/empty.
func Str(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

// Int returns the integer value of the environment variable key, or
// fallback if unset/empty/malformed.
func Int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// Float returns the float value of the environment variable key, or
// fallback if unset/empty/malformed.
func Float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// Bool returns the boolean value of the environment variable key, or
// fallback if unset/empty/malformed.
func Bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
