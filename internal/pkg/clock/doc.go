// Package clock hides time.Now behind Clocker. Manual is a controllable
// clock for tests and the in-memory key-value store.
package clock
