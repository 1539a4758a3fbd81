// Package common contains shared constants and sentinel errors used across
// the usersecrets server.
package common

const (
	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "session"

	// OAuthStateCookieName binds a pending provider login to the browser that started it.
	OAuthStateCookieName = "oauth_state"
)
