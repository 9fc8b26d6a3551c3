// Package jwt issues and verifies HS512 access tokens carrying the user id
// and email, and moves verified claims through a request context.
package jwt
