// Package kvstore provides the small set of atomic key-value primitives the
// OTP guards are built on: counters with a fixed expiry, values with a TTL,
// and compare-and-delete.
//
// Redis is the production backend. Memory is a process-local implementation
// used in tests and when no Redis URL is configured.
package kvstore
