// Package sessions keeps track of who a browser is. A random session id is
// stored server-side with the minimal Identity; the browser only holds a
// signed token pointing at it.
package sessions

// Identity is everything serialized into session state. Credentials never are.
type Identity struct {
	UserID   string `json:"id"`
	UserName string `json:"username,omitempty"`
}

// Anonymous is the identity of a request without a valid session.
var Anonymous = Identity{}

func (i Identity) Authenticated() bool {
	return i.UserID != ""
}
