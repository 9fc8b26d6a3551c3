// Package hash provides keyed hashing for secrets that must be looked up by
// value but never stored in plain form, such as refresh tokens.
package hash
