// Package util provides environment parsing and random ID helpers shared
// across components.
package util

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// GetEnv returns the value of an environment variable or a default when
// unset or empty.
func GetEnv(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// ParseBoolEnv reads a boolean environment variable. It understands
// true/1/yes/on and false/0/no/off in any case; unset or unrecognized
// values yield the default.
func ParseBoolEnv(key string, defaultValue bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return defaultValue
	}
	switch raw {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	slog.Warn("ParseBoolEnv: unrecognized value, using default", "key", key, "value", raw, "default", defaultValue)
	return defaultValue
}

// ParseIntEnv reads an integer environment variable; unset or malformed
// values yield the default.
func ParseIntEnv(key string, defaultValue int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("ParseIntEnv: not an integer, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return n
}
