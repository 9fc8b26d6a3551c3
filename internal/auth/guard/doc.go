// Package guard holds the OTP state machine primitives: issuing and consuming
// codes, fixed-window rate limiting, and failed-attempt lockout.
//
// Every piece of state lives in a kvstore.Store under a per-identity key with
// a TTL. Nothing is cached in process, so any number of replicas can share
// one store.
package guard
