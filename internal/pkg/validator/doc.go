// Package validator validates request and domain structs.
//
// Business code depends on the Validator interface; V10Validator is the
// go-playground/validator implementation with English messages and the
// extra "digits" rule used for numeric one-time codes.
package validator
