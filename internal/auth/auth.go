// Package auth implements shared-secret request authentication.
package auth

import "crypto/subtle"

// RequiredMessage is returned to clients whose token does not match.
const RequiredMessage = "Authentication required. Please provide a valid auth token to use this assistant."

// Authenticator checks client-supplied tokens against a shared secret. An
// empty secret disables authentication entirely.
type Authenticator struct {
	secret string
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: secret}
}

// Enabled reports whether a secret is configured.
func (a *Authenticator) Enabled() bool {
	return a.secret != ""
}

// Verify reports whether token grants access. The comparison is constant time
// so the check does not leak how much of the token matched.
func (a *Authenticator) Verify(token string) bool {
	if a.secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.secret)) == 1
}
