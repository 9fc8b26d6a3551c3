// Package config reads typed settings from a file, with environment overrides.
package config

import (
	"io"
	"time"
)

// Config is the read side of the application settings. Missing or
// unconvertible keys yield the zero value.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetFloat64(key string) float64

	// GetArray reads a YAML sequence or a comma separated string.
	GetArray(key string) []string

	// Duration helpers interpret the integer value at key in the named unit.
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetDay(key string) time.Duration
}
