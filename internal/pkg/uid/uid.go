// Package uid generates identifiers: numeric (snowflake) for row keys and
// string (UUID, ObjectID) for correlation IDs, event IDs, and opaque tokens.
package uid

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates numeric identifiers.
type NumberID interface {
	Generate() int64
}
